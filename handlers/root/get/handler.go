package get

import (
	"net/http"

	"github.com/a-h/chatstream/models"
	"github.com/a-h/respond"
)

const Greeting = "Lo sapevi? Did you know?"

func New() Handler {
	return Handler{}
}

type Handler struct{}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.WithJSON(w, models.RootGetResponse{Message: Greeting}, http.StatusOK)
}
