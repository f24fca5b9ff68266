/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidSyntax   = errors.New("invalid move syntax")
	ErrIllegal         = errors.New("illegal move")
	ErrMissingIdentity = errors.New("missing display name")
)

// moveErrorMessage maps a rejected move to the text shown to its submitter.
func moveErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSyntax):
		return "Invalid move syntax."
	case errors.Is(err, ErrIllegal):
		return "Illegal move."
	default:
		return "An error has occurred. Please try again."
	}
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func logErrors(errs <-chan error) {
	for err := range errs {
		fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
	}
}

func serveErrorPage(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(http.StatusInternalServerError)

	_, _ = io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", html.EscapeString(body)))

	return htmlBody.String()
}
