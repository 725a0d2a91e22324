// Package orchestrator drives one dialogue turn: it repeatedly calls the
// chat model, interprets the stop reason, dispatches requested tool calls
// and feeds results back until the model produces a final answer or the
// iteration cap is hit.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/lepestok-ai/server/internal/agent/catalog"
	"github.com/lepestok-ai/server/internal/agent/cities"
	"github.com/lepestok-ai/server/internal/agent/dialogue"
	"github.com/lepestok-ai/server/internal/agent/extract"
	"github.com/lepestok-ai/server/internal/agent/matching"
	"github.com/lepestok-ai/server/internal/agent/model"
	"github.com/lepestok-ai/server/internal/agent/prompts"
	"github.com/lepestok-ai/server/internal/agent/session"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// apologyReply is the degraded answer when the model service fails or the
// loop exhausts its cap without any text. The turn is never left
// unanswered.
const apologyReply = "Извините, у меня небольшие технические неполадки. Попробуйте, пожалуйста, ещё раз."

const (
	// defaultMaxModelCalls bounds model-service calls per turn.
	defaultMaxModelCalls = 5
	// defaultMaxProducts caps the product list handed back to the caller.
	defaultMaxProducts = 8
)

// Config wires the orchestrator.
type Config struct {
	Store     session.Store
	Chat      ChatModel
	Cities    *cities.Cache
	Catalog   catalog.Backend
	Matcher   *matching.Engine
	Extractor *extract.Engine
	Prompt    model.PromptConfig
	Turn      model.TurnConfig
}

// Orchestrator is the only entry point collaborators (the HTTP layer) use.
type Orchestrator struct {
	store     session.Store
	chat      ChatModel
	cities    *cities.Cache
	catalog   catalog.Backend
	matcher   *matching.Engine
	extractor *extract.Engine

	promptCfg     model.PromptConfig
	maxModelCalls int
	maxProducts   int
}

// New validates the config and builds an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil || cfg.Chat == nil || cfg.Cities == nil || cfg.Catalog == nil ||
		cfg.Matcher == nil || cfg.Extractor == nil {
		return nil, fmt.Errorf("orchestrator config is incomplete")
	}
	maxCalls := cfg.Turn.MaxModelCalls
	if maxCalls <= 0 {
		maxCalls = defaultMaxModelCalls
	}
	maxProducts := cfg.Turn.MaxProducts
	if maxProducts <= 0 {
		maxProducts = defaultMaxProducts
	}
	return &Orchestrator{
		store:         cfg.Store,
		chat:          cfg.Chat,
		cities:        cfg.Cities,
		catalog:       cfg.Catalog,
		matcher:       cfg.Matcher,
		extractor:     cfg.Extractor,
		promptCfg:     cfg.Prompt,
		maxModelCalls: maxCalls,
		maxProducts:   maxProducts,
	}, nil
}

// TurnRequest is one inbound user message with optional caller-supplied
// context.
type TurnRequest struct {
	SessionID  string
	Message    string
	City       string
	Coordinate *model.Coordinate
}

// TurnResult is what a turn hands back to the caller.
type TurnResult struct {
	SessionID string
	Reply     string
	Cart      model.Cart
	Products  []model.Product
	City      *model.City
	Customer  *model.CustomerInfo
}

// RunTurn processes one user message end to end. Model-service failure
// degrades to an apology reply rather than an error; only session-store
// failures surface as errors.
func (o *Orchestrator) RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	sess, err := o.store.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	params := o.extractor.Extract(req.Message)
	if desc := extract.Describe(params); desc != "" {
		logx.Debug().Str("session_id", sess.ID).Str("params", desc).Msg("extracted params")
	}

	var reqCity *model.City
	if req.City != "" {
		if city, ok := o.cities.Resolve(req.City); ok {
			reqCity = city
		}
	}

	sess, err = o.store.Update(ctx, sess.ID, func(s *model.Session) {
		mergeParams(s, params)
		if reqCity != nil {
			s.City = reqCity
		}
		if req.Coordinate != nil {
			s.Coordinate = req.Coordinate
		}
		s.AppendTurn(model.RoleUser, req.Message, time.Now())
	})
	if err != nil {
		return nil, err
	}

	ts := newTurnState(sess, params.Preferences)
	reply := o.runLoop(ctx, sess, ts)

	final, err := o.store.Update(ctx, sess.ID, func(s *model.Session) {
		if ts.cartChanged {
			s.Cart = ts.cart
		}
		if ts.city != nil {
			s.City = ts.city
		}
		if ts.customer != nil {
			s.Customer = ts.customer
		}
		s.AppendTurn(model.RoleAssistant, reply, time.Now())
	})
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		SessionID: final.ID,
		Reply:     reply,
		Cart:      final.Cart,
		Products:  ts.products,
		City:      final.City,
		Customer:  ts.customer,
	}, nil
}

// runLoop is the bounded model/tool loop. It always returns a non-empty
// reply string.
func (o *Orchestrator) runLoop(ctx context.Context, sess *model.Session, ts *turnState) string {
	history := historyMessages(sess)
	var exchange []*schema.Message

	var lastText string
	toolCallIDSeq := 0

	for i := 0; i < o.maxModelCalls; i++ {
		// Mode and system instructions are rebuilt before every call so
		// facts confirmed by tools earlier in the same turn, the city above
		// all, are visible to the model immediately.
		mode := dialogue.ModeFor(sess, ts.City())
		systemPrompt, err := o.renderSystem(ctx, sess, ts, mode)
		if err != nil {
			logx.Error().Err(err).Str("session_id", sess.ID).Msg("failed to render system instructions")
			return apologyReply
		}

		msgs := make([]*schema.Message, 0, len(history)+len(exchange)+1)
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
		msgs = append(msgs, history...)
		msgs = append(msgs, exchange...)

		out, err := o.chat.Generate(ctx, msgs, einomodel.WithTools(toolInfosFor(mode)))
		if err != nil {
			// Turn-fatal, but the user still gets an answer.
			logx.Error().Err(err).Str("session_id", sess.ID).Msg("model call failed")
			return apologyReply
		}
		if out == nil {
			logx.Error().Str("session_id", sess.ID).Msg("model returned nil message")
			return apologyReply
		}

		if len(out.ToolCalls) == 0 {
			if out.Content != "" {
				return out.Content
			}
			break
		}

		// Some providers omit tool call ids; synthesize them so results
		// can be matched back.
		for j := range out.ToolCalls {
			if out.ToolCalls[j].ID == "" {
				toolCallIDSeq++
				out.ToolCalls[j].ID = fmt.Sprintf("call_%d", toolCallIDSeq)
			}
		}
		if out.Content != "" {
			lastText = out.Content
		}

		logx.Debug().
			Str("session_id", sess.ID).
			Int("tool_count", len(out.ToolCalls)).
			Int("iteration", i+1).
			Msg("dispatching tool calls")

		results := o.dispatchAll(ctx, ts, out.ToolCalls)
		exchange = append(exchange, out)
		exchange = append(exchange, results...)
	}

	if lastText != "" {
		return lastText
	}
	logx.Warn().Str("session_id", sess.ID).Msg("turn ended without a final answer")
	return apologyReply
}

// dispatchAll runs the calls of one model response concurrently; they do
// not depend on each other's output before being reported back as a batch.
// Results keep the call order.
func (o *Orchestrator) dispatchAll(ctx context.Context, ts *turnState, calls []schema.ToolCall) []*schema.Message {
	results := make([]*schema.Message, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call schema.ToolCall) {
			defer wg.Done()
			results[i] = o.dispatch(ctx, ts, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

// renderSystem renders the instructions over a session view merged with the
// turn's accumulated tool effects, so an in-turn set_city or cart change is
// reflected on the very next model call.
func (o *Orchestrator) renderSystem(ctx context.Context, sess *model.Session, ts *turnState, mode dialogue.Mode) (string, error) {
	view := *sess
	if city := ts.City(); city != nil {
		view.City = city
	}
	view.Cart = ts.currentCart()
	return prompts.RenderSystem(ctx, o.promptCfg, &view, mode)
}

func historyMessages(sess *model.Session) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(sess.Turns))
	for _, turn := range sess.Turns {
		switch turn.Role {
		case model.RoleUser:
			msgs = append(msgs, schema.UserMessage(turn.Text))
		case model.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return msgs
}

// mergeParams folds the per-message extraction into the session. Presence
// overwrites, absence never erases.
func mergeParams(s *model.Session, p model.ExtractedParams) {
	if p.Recipient != "" {
		s.Recipient = p.Recipient
	}
	if p.Occasion != "" {
		s.Occasion = p.Occasion
	}
	if p.Budget != nil {
		s.Budget = p.Budget
	}
	if p.City != nil {
		s.City = p.City
	}
	if p.Address != "" {
		s.Address = p.Address
	}
	if p.Date != "" {
		s.Date = p.Date
	}
}

// ================ Session facade ================

// GetSession exposes session inspection to the HTTP layer.
func (o *Orchestrator) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return o.store.Get(ctx, id)
}

// DeleteSession removes a session explicitly.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	return o.store.Delete(ctx, id)
}

// SessionStats reports store occupancy.
func (o *Orchestrator) SessionStats(ctx context.Context) (session.Stats, error) {
	return o.store.Stats(ctx)
}
