package models

// Requests for the HTTP endpoints. Strategy names are checked against the
// risk registry, not here.

type MarketRequest struct {
	Strategy string `query:"strategy" json:"strategy"`
}

type RecommendationRequest struct {
	Amount   string `query:"amount" json:"amount"`
	Strategy string `query:"strategy" json:"strategy"`
}

type OpenSessionRequest struct {
	Strategy string `json:"strategy"`
}

type SessionAmountRequest struct {
	ID     string `param:"id" validate:"required,uuid"`
	Amount string `query:"amount" json:"amount"`
}

type HistoryRequest struct {
	From  string `query:"from"`
	To    string `query:"to"`
	Limit int    `query:"limit" default:"400" validate:"gte=1,lte=5000"`
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type BroadcastRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=10000"`
}
