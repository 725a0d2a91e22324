package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/lepestok-ai/server/internal/agent/dialogue"
	"github.com/lepestok-ai/server/internal/agent/model"
)

//go:embed template/system_prompt.txt
var coreSystemPrompt string

// RenderSystem renders the per-turn system instructions, embedding what the
// session already knows so the model does not re-ask for it.
func RenderSystem(ctx context.Context, cfg model.PromptConfig, sess *model.Session, mode dialogue.Mode) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)

	vars := map[string]any{
		"ShopName":      cfg.ShopName,
		"Mode":          string(mode),
		"City":          cityName(sess),
		"Known":         knownFacts(sess),
		"CartSummary":   cartSummary(sess),
		"SearchTool":    dialogue.ToolSearchProducts,
		"SetCityTool":   dialogue.ToolSetCity,
		"AddToCartTool": dialogue.ToolAddToCart,
		"SaveInfoTool":  dialogue.ToolSaveCustomerInfo,
	}

	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

func cityName(sess *model.Session) string {
	if sess.City == nil {
		return ""
	}
	return sess.City.Name
}

func knownFacts(sess *model.Session) string {
	var facts []string
	if sess.Recipient != "" {
		facts = append(facts, "получатель — "+string(sess.Recipient))
	}
	if sess.Occasion != "" {
		facts = append(facts, "повод — "+string(sess.Occasion))
	}
	if sess.Budget != nil {
		facts = append(facts, fmt.Sprintf("бюджет %.0f–%.0f руб", sess.Budget.Min, sess.Budget.Max))
	}
	if sess.Date != "" {
		facts = append(facts, "дата доставки "+sess.Date)
	}
	return strings.Join(facts, ", ")
}

func cartSummary(sess *model.Session) string {
	if len(sess.Cart.Items) == 0 {
		return ""
	}
	item := sess.Cart.Items[0]
	return fmt.Sprintf("%s × %d, %.0f руб", item.Name, item.Quantity, sess.Cart.TotalPrice)
}
