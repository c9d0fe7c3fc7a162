package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"IP-DNS-API/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeYAML = "application/x-yaml; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"

	notFoundRoute = "not_found"
)

type API struct {
	config   Config
	resolver Resolver
}

type route struct {
	Name        string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type ipResponse struct {
	IP string `json:"ip"`
}

// NewRouter matches paths exactly and for every method. Anything unmatched
// is answered with 400 and an empty object.
func NewRouter(cfg Config, resolver Resolver) http.Handler {
	api := &API{config: cfg, resolver: resolver}

	router := mux.NewRouter().SkipClean(true)
	for _, route := range api.routes() {
		router.Path(route.Pattern).
			Name(route.Name).
			Handler(api.middleware(route.Name, route.HandlerFunc))
	}
	router.NotFoundHandler = api.middleware(notFoundRoute, api.handleNotFound)

	return router
}

func (api *API) routes() []route {
	routes := []route{
		{Name: "ip", Pattern: "/ip", HandlerFunc: api.handleIP},
		{Name: "dns", Pattern: "/dns", HandlerFunc: api.handleDNS},
	}

	if api.config.Docs {
		routes = append(routes,
			route{Name: "spec", Pattern: "/spec.yaml", HandlerFunc: api.handleSpec},
			route{Name: "swagger-ui", Pattern: "/swagger-ui.html", HandlerFunc: api.handleSwaggerUI},
		)
	}

	return routes
}

// --- IP LOGIC ---

// clientIP reports the connection peer, or the forwarded client when the
// peer is a trusted proxy.
func (api *API) clientIP(r *http.Request) string {
	remoteIP, _, _ := net.SplitHostPort(r.RemoteAddr)
	if remoteIP == "" {
		remoteIP = r.RemoteAddr
	}

	if !slices.Contains(api.config.TrustedProxies, remoteIP) {
		return remoteIP
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return remoteIP
}

// searchParam returns the first value of key the way browsers read a query
// string: only '&' separates pairs and a malformed escape is kept verbatim.
func searchParam(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if unescapeParam(k) == key {
			return unescapeParam(v)
		}
	}
	return ""
}

func unescapeParam(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return strings.ReplaceAll(s, "+", " ")
}

// --- HANDLERS ---

func (api *API) handleIP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ipResponse{IP: api.clientIP(r)})
}

func (api *API) handleDNS(w http.ResponseWriter, r *http.Request) {
	query := searchParam(r.URL.RawQuery, "query")
	if query == "" {
		api.handleNotFound(w, r)
		return
	}

	// lookups run to completion even if the client goes away
	result := Lookup(context.WithoutCancel(r.Context()), api.resolver, query)

	writeJSON(w, http.StatusOK, result)
}

func (api *API) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte("{}"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Sugar.Errorf("encode %T error=[%+v]", v, err)
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("{}"))
		return
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err = w.Write(body); err != nil {
		log.Sugar.Debugf("write response error=[%+v]", err)
	}
}

func (api *API) middleware(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		status := strconv.Itoa(rw.statusCode)
		requestDuration.WithLabelValues(route, status).Observe(duration.Seconds())
		requestTotal.WithLabelValues(route, status).Inc()

		log.Sugar.Debugw("request", "ip", api.clientIP(r), "method", r.Method, "path", r.URL.Path, "status", rw.statusCode, "dur", duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
