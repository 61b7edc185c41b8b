// Package errors provides the application error type carried across layer
// boundaries. Transport layers map it to HTTP responses and socket error
// frames; everything else wraps it with fmt.Errorf.
package errors

import "fmt"

type AppError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func New(status int, title, detail string) *AppError {
	return &AppError{Status: status, Title: title, Detail: detail}
}
