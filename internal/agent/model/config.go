package model

// ================ Config ================
type SessionConfig struct {
	TTL           string `envconfig:"SESSION_TTL" default:"24h"`
	SweepInterval string `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`
	Store         string `envconfig:"SESSION_STORE" default:"memory"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type TurnConfig struct {
	MaxModelCalls int `envconfig:"TURN_MAX_MODEL_CALLS" default:"5"`
	MaxProducts   int `envconfig:"TURN_MAX_PRODUCTS" default:"8"`
}

type PromptConfig struct {
	ShopName string `envconfig:"PROMPT_SHOP_NAME" default:"Лепесток"`
}

type CatalogConfig struct {
	BaseURL string `envconfig:"CATALOG_BASE_URL" required:"true"`
	Timeout int    `envconfig:"CATALOG_TIMEOUT_SECONDS" default:"10"`
}

type GeoConfig struct {
	BaseURL string `envconfig:"GEO_BASE_URL" required:"true"`
	Timeout int    `envconfig:"GEO_TIMEOUT_SECONDS" default:"5"`
}
