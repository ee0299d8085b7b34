package httpdto

// GraphQLRequest is the body of a POST to the GraphQL endpoint.
type GraphQLRequest struct {
	Query         string                 `json:"query" binding:"required"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Clients     int    `json:"clients"`
	Operations  int    `json:"operations"`
	Subscribers int    `json:"subscribers"`
}
