// Package greeter is a small controller that exercises every input slot
// kind the invoker supports.
package greeter

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/outcome"
)

// ControllerName is the activation registry key.
const ControllerName = "greeter"

const helloKey = "Hello, %s!"

var supported = []language.Tag{
	language.English,
	language.French,
	language.Spanish,
	language.German,
}

var matcher = language.NewMatcher(supported)

// Greeting is a stored greeting.
type Greeting struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	Message   string    `json:"message"`
	Tag       string    `json:"tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateGreeting is the body of POST /greetings.
type CreateGreeting struct {
	Name     string `json:"name" validate:"required,max=64"`
	Language string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// Greeter keeps greetings in memory. It is safe for concurrent use.
type Greeter struct {
	mu        sync.RWMutex
	greetings map[string]*Greeting
	cat       *catalog.Builder
	now       func() time.Time
}

// New creates an empty greeter.
func New() *Greeter {
	cat := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msg := range map[language.Tag]string{
		language.English: "Hello, %s!",
		language.French:  "Bonjour, %s !",
		language.Spanish: "¡Hola, %s!",
		language.German:  "Hallo, %s!",
	} {
		// Only fails for malformed messages.
		if err := cat.SetString(tag, helloKey, msg); err != nil {
			panic(err)
		}
	}
	return &Greeter{
		greetings: make(map[string]*Greeting),
		cat:       cat,
		now:       time.Now,
	}
}

// Hello greets name in the best match of lang and the Accept-Language
// header.
func (g *Greeter) Hello(ctx context.Context, name, lang string, excited bool, acceptLanguage string) (string, error) {
	msg := g.message(g.match(lang, acceptLanguage), name)
	if excited {
		msg = strings.ToUpper(msg)
	}
	return msg, nil
}

// Create stores a greeting and answers 201.
func (g *Greeter) Create(ctx context.Context, req CreateGreeting, tag string) (domain.Outcome, error) {
	lang := g.match(req.Language, "")
	greeting := &Greeting{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Language:  lang.String(),
		Message:   g.message(lang, req.Name),
		Tag:       tag,
		CreatedAt: g.now().UTC(),
	}

	g.mu.Lock()
	g.greetings[greeting.ID] = greeting
	g.mu.Unlock()

	return outcome.Created(greeting), nil
}

// Get returns a stored greeting or a bare 404.
func (g *Greeter) Get(ctx context.Context, id string) (domain.Outcome, error) {
	g.mu.RLock()
	greeting, ok := g.greetings[id]
	g.mu.RUnlock()
	if !ok {
		return domain.NotFound(), nil
	}
	cp := *greeting
	return outcome.NewObject(&cp), nil
}

func (g *Greeter) match(prefs ...string) language.Tag {
	var nonEmpty []string
	for _, p := range prefs {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	_, idx := language.MatchStrings(matcher, nonEmpty...)
	return supported[idx]
}

func (g *Greeter) message(tag language.Tag, name string) string {
	p := message.NewPrinter(tag, message.Catalog(g.cat))
	return p.Sprintf(helloKey, name)
}
