package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/lepestok-ai/server/internal/agent/cart"
	"github.com/lepestok-ai/server/internal/agent/dialogue"
	"github.com/lepestok-ai/server/internal/agent/matching"
	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// ================ Tool schemas ================

// toolInfos declares the full tool set; the dialogue mode decides which
// subset is advertised on a given model call.
var toolInfos = []*schema.ToolInfo{
	{
		Name: dialogue.ToolSetCity,
		Desc: "Подтвердить город доставки. Вызывай, когда пользователь называет город. Возвращает каноничное название города или ошибку, если город не обслуживается.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"city": {
				Type:     "string",
				Desc:     "Название города, как его назвал пользователь.",
				Required: true,
			},
		}),
	},
	{
		Name: dialogue.ToolSaveCustomerInfo,
		Desc: "Сохранить контактные данные покупателя (имя, телефон) для оформления заказа.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"name": {
				Type: "string",
				Desc: "Имя покупателя.",
			},
			"phone": {
				Type: "string",
				Desc: "Телефон покупателя.",
			},
		}),
	},
	{
		Name: dialogue.ToolSearchProducts,
		Desc: "Подобрать букеты с доставкой в городе пользователя. Требует известного города доставки. Учитывает бюджет и предпочтения по цветам.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"min_price": {
				Type: "number",
				Desc: "Минимальная цена в рублях (необязательно).",
			},
			"max_price": {
				Type: "number",
				Desc: "Максимальная цена в рублях (необязательно).",
			},
			"preferences": {
				Type: "string",
				Desc: "Пожелания по цветам и оттенкам, включая то, чего не должно быть. Например: белые розы, без лилий.",
			},
			"address": {
				Type: "string",
				Desc: "Адрес доставки, если пользователь его назвал.",
			},
		}),
	},
	{
		Name: dialogue.ToolProductDetails,
		Desc: "Получить подробности букета по его слагу из результатов поиска.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"slug": {
				Type:     "string",
				Desc:     "Слаг товара из результатов поиска.",
				Required: true,
			},
		}),
	},
	{
		Name: dialogue.ToolAddToCart,
		Desc: "Положить выбранный букет в корзину. Корзина вмещает один букет: новый выбор заменяет предыдущий.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_id": {
				Type:     "string",
				Desc:     "ID товара из результатов поиска.",
				Required: true,
			},
			"shop_id": {
				Type: "string",
				Desc: "ID магазина из результатов поиска.",
			},
			"name": {
				Type: "string",
				Desc: "Название букета.",
			},
			"price": {
				Type:     "number",
				Desc:     "Цена за единицу из результатов поиска.",
				Required: true,
			},
			"quantity": {
				Type: "number",
				Desc: "Количество, по умолчанию 1.",
			},
		}),
	},
	{
		Name: dialogue.ToolSetCartQuantity,
		Desc: "Изменить количество букета в корзине. Ноль удаляет позицию.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_id": {
				Type:     "string",
				Desc:     "ID товара в корзине.",
				Required: true,
			},
			"quantity": {
				Type:     "number",
				Desc:     "Новое количество.",
				Required: true,
			},
		}),
	},
	{
		Name: dialogue.ToolRemoveFromCart,
		Desc: "Убрать букет из корзины.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_id": {
				Type:     "string",
				Desc:     "ID товара в корзине.",
				Required: true,
			},
		}),
	},
}

// toolInfosFor filters the declared set down to what the mode advertises.
func toolInfosFor(mode dialogue.Mode) []*schema.ToolInfo {
	allowed := dialogue.Allowed(mode)
	infos := make([]*schema.ToolInfo, 0, len(allowed))
	for _, name := range allowed {
		for _, info := range toolInfos {
			if info.Name == name {
				infos = append(infos, info)
				break
			}
		}
	}
	return infos
}

// ================ Tool payloads ================

type setCityInput struct {
	City string `json:"city"`
}

type saveCustomerInfoInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type searchProductsInput struct {
	MinPrice    float64 `json:"min_price"`
	MaxPrice    float64 `json:"max_price"`
	Preferences string  `json:"preferences"`
	Address     string  `json:"address"`
}

type productDetailsInput struct {
	Slug string `json:"slug"`
}

type addToCartInput struct {
	ProductID string  `json:"product_id"`
	ShopID    string  `json:"shop_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type setCartQuantityInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type removeFromCartInput struct {
	ProductID string `json:"product_id"`
}

// ================ Dispatch ================

func errResult(code, message string) string {
	b, _ := json.Marshal(map[string]string{"error": code, "message": message})
	return string(b)
}

func okResult(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errResult("encode_failed", "failed to encode tool result")
	}
	return string(b)
}

// dispatch routes one requested tool call through the closed handler set
// and always produces a tool result message, never a crash. The mode gate
// runs here, at the point of dispatch, so a forbidden tool is rejected even
// when the model names it out of turn.
func (o *Orchestrator) dispatch(ctx context.Context, ts *turnState, call schema.ToolCall) *schema.Message {
	name := call.Function.Name
	args := call.Function.Arguments

	known := false
	for _, info := range toolInfos {
		if info.Name == name {
			known = true
			break
		}
	}
	if !known {
		logx.Warn().Str("tool_name", name).Msg("unknown tool call requested")
		return schema.ToolMessage(errResult("unknown_tool", fmt.Sprintf("инструмент %q не существует", name)), call.ID)
	}

	mode := dialogue.ModeFor(ts.sess, ts.City())
	if !dialogue.Permits(mode, name) {
		logx.Warn().Str("tool_name", name).Str("mode", string(mode)).Msg("tool rejected by dialogue mode")
		return schema.ToolMessage(errResult("tool_not_allowed", "этот инструмент недоступен, пока не известны получатель, повод и город доставки"), call.ID)
	}

	var content string
	switch name {
	case dialogue.ToolSetCity:
		content = o.handleSetCity(ts, args)
	case dialogue.ToolSaveCustomerInfo:
		content = o.handleSaveCustomerInfo(ts, args)
	case dialogue.ToolSearchProducts:
		content = o.handleSearchProducts(ctx, ts, args)
	case dialogue.ToolProductDetails:
		content = o.handleProductDetails(ctx, args)
	case dialogue.ToolAddToCart:
		content = o.handleAddToCart(ts, args)
	case dialogue.ToolSetCartQuantity:
		content = o.handleSetCartQuantity(ts, args)
	case dialogue.ToolRemoveFromCart:
		content = o.handleRemoveFromCart(ts, args)
	}
	return schema.ToolMessage(content, call.ID)
}

func (o *Orchestrator) handleSetCity(ts *turnState, args string) string {
	var in setCityInput
	if err := json.Unmarshal([]byte(args), &in); err != nil || strings.TrimSpace(in.City) == "" {
		return errResult("bad_arguments", "нужно название города")
	}

	city, ok := o.cities.Resolve(in.City)
	if !ok {
		return errResult("unknown_city", fmt.Sprintf("город %q не обслуживается", in.City))
	}
	ts.setCity(city)
	return okResult(map[string]string{"status": "ok", "city": city.Name, "slug": city.Slug})
}

func (o *Orchestrator) handleSaveCustomerInfo(ts *turnState, args string) string {
	var in saveCustomerInfoInput
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return errResult("bad_arguments", "не удалось разобрать контактные данные")
	}
	if strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.Phone) == "" {
		return errResult("bad_arguments", "нужно имя или телефон")
	}
	ts.setCustomer(&model.CustomerInfo{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
	})
	return okResult(map[string]string{"status": "ok"})
}

func (o *Orchestrator) handleSearchProducts(ctx context.Context, ts *turnState, args string) string {
	var in searchProductsInput
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return errResult("bad_arguments", "не удалось разобрать параметры поиска")
	}

	// Defense in depth: the coupling contract, independent of mode gating.
	city := ts.City()
	if city == nil && ts.sess.Coordinate == nil {
		return errResult("city_required", "сначала нужен город доставки")
	}

	query := matching.Query{
		City:           city,
		Coordinate:     ts.sess.Coordinate,
		Address:        in.Address,
		PreferenceText: in.Preferences,
	}
	if query.Address == "" {
		query.Address = ts.sess.Address
	}
	if query.PreferenceText == "" {
		query.PreferenceText = ts.preferences
	}
	if in.MinPrice > 0 || in.MaxPrice > 0 {
		query.Price = &model.BudgetRange{Min: in.MinPrice, Max: in.MaxPrice}
	} else if ts.sess.Budget != nil {
		query.Price = ts.sess.Budget
	}

	products, err := o.matcher.Search(ctx, query)
	if err != nil {
		if errors.Is(err, errx.ErrCityRequired) {
			return errResult("city_required", "сначала нужен город доставки")
		}
		logx.Error().Err(err).Msg("product search failed")
		return errResult("search_failed", "поиск временно недоступен")
	}
	if len(products) > o.maxProducts {
		products = products[:o.maxProducts]
	}
	ts.setProducts(products)

	type productSummary struct {
		ID        string  `json:"id"`
		Slug      string  `json:"slug,omitempty"`
		Name      string  `json:"name"`
		Price     float64 `json:"price"`
		ShopID    string  `json:"shop_id"`
		Available bool    `json:"available"`
	}
	summaries := make([]productSummary, 0, len(products))
	for _, p := range products {
		summaries = append(summaries, productSummary{
			ID: p.ID, Slug: p.Slug, Name: p.Name, Price: p.Price,
			ShopID: p.ShopID, Available: p.Available,
		})
	}
	return okResult(map[string]any{"products": summaries, "total": len(summaries)})
}

func (o *Orchestrator) handleProductDetails(ctx context.Context, args string) string {
	var in productDetailsInput
	if err := json.Unmarshal([]byte(args), &in); err != nil || strings.TrimSpace(in.Slug) == "" {
		return errResult("bad_arguments", "нужен слаг товара")
	}

	product, err := o.catalog.ProductDetail(ctx, in.Slug)
	if err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return errResult("not_found", fmt.Sprintf("товар %q не найден", in.Slug))
		}
		logx.Error().Err(err).Str("slug", in.Slug).Msg("product detail lookup failed")
		return errResult("lookup_failed", "каталог временно недоступен")
	}
	return okResult(map[string]any{"product": product})
}

func (o *Orchestrator) handleAddToCart(ts *turnState, args string) string {
	var in addToCartInput
	if err := json.Unmarshal([]byte(args), &in); err != nil {
		return errResult("bad_arguments", "не удалось разобрать товар")
	}
	if strings.TrimSpace(in.ProductID) == "" || in.Price <= 0 {
		return errResult("bad_arguments", "нужны ID товара и цена")
	}

	updated := cart.Add(ts.currentCart(), model.CartItem{
		ProductID: in.ProductID,
		ShopID:    in.ShopID,
		Name:      in.Name,
		Price:     in.Price,
		Quantity:  in.Quantity,
	})
	ts.setCart(updated)
	return okResult(map[string]any{"status": "ok", "cart": updated})
}

func (o *Orchestrator) handleSetCartQuantity(ts *turnState, args string) string {
	var in setCartQuantityInput
	if err := json.Unmarshal([]byte(args), &in); err != nil || strings.TrimSpace(in.ProductID) == "" {
		return errResult("bad_arguments", "нужны ID товара и количество")
	}

	updated := cart.SetQuantity(ts.currentCart(), in.ProductID, in.Quantity)
	ts.setCart(updated)
	return okResult(map[string]any{"status": "ok", "cart": updated})
}

func (o *Orchestrator) handleRemoveFromCart(ts *turnState, args string) string {
	var in removeFromCartInput
	if err := json.Unmarshal([]byte(args), &in); err != nil || strings.TrimSpace(in.ProductID) == "" {
		return errResult("bad_arguments", "нужен ID товара")
	}

	updated := cart.Remove(ts.currentCart(), in.ProductID)
	ts.setCart(updated)
	return okResult(map[string]any{"status": "ok", "cart": updated})
}
