package handlers

import (
	"net/http"
	nethttp "net/http"
)

func Get(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "boom", http.StatusInternalServerError) // want "use router.WriteError instead of http.Error"
}

func Aliased(w http.ResponseWriter, r *http.Request) {
	nethttp.Error(w, "boom", http.StatusBadRequest) // want "use router.WriteError instead of http.Error"
}

type responder struct{}

func (responder) Error(w http.ResponseWriter, msg string, code int) {}

func Local(w http.ResponseWriter, r *http.Request) {
	var resp responder
	resp.Error(w, "fine", http.StatusBadRequest)
	w.WriteHeader(http.StatusNoContent)
}
