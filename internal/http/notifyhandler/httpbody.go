package notifyhandler

type ErrorResponse struct {
	Error string `json:"error"`
}

type OnlineResponse struct {
	Users []string `json:"users"`
}
