package router

import (
	"net/http"
	"strings"
)

const methodOverrideParam = "_method"

var overridableMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets HTML forms reach PUT, PATCH and DELETE routes: a POST
// carrying `_method` in its query string or form body is routed as that method.
func MethodOverride(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if request.Method == http.MethodPost {
			method := request.URL.Query().Get(methodOverrideParam)
			if method == "" {
				method = request.PostFormValue(methodOverrideParam)
			}
			method = strings.ToUpper(method)
			if overridableMethods[method] {
				request.Method = method
			}
		}
		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
