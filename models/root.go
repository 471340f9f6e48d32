package models

type RootGetResponse struct {
	Message string `json:"message"`
}
