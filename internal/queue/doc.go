// Package queue defines the scheduled message model shared by the web form,
// the store and the dispatcher: items, mention targets, submission
// validation and the error taxonomy.
package queue
