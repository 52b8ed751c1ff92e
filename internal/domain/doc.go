// Package domain defines the core business entities of the task tracker
// (users, tasks, revoked tokens) together with their validation rules and errors.
package domain
