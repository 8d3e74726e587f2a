// Package web serves the submission form: a single page listing the queue and
// a form that validates and enqueues new items, plus cancel, health and
// metrics endpoints.
//
// Handlers only read the directory snapshot and call the queue store; they
// never talk to the chat platform.
package web
