// Package demo runs the scripted CRUD walkthrough shown by `querykit demo`.
package demo
