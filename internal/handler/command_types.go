package handler

import (
	"github.com/openclaw/timeclock-server-go/internal/export"
)

// Command Request Types

type CommandRequest struct {
	Organization CommandOrganization `json:"organization"`
	User         CommandUser         `json:"user"`
	Command      string              `json:"command,omitempty"`
	Options      CommandOptions      `json:"options"`
	Utterance    string              `json:"utterance,omitempty"`
}

type CommandOrganization struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type CommandUser struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	// IsAdmin is resolved by the platform gateway from the member's roles.
	IsAdmin bool `json:"isAdmin"`
}

type CommandOptions struct {
	PublicID  string `json:"publicId,omitempty"`
	NewStart  string `json:"newStart,omitempty"`
	NewEnd    string `json:"newEnd,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Command Response Types

type ReplyKind string

const (
	ReplySuccess ReplyKind = "success"
	ReplyError   ReplyKind = "error"
	ReplyInfo    ReplyKind = "info"
)

type CommandResponse struct {
	Reply Reply         `json:"reply"`
	Table *export.Table `json:"table,omitempty"`
}

// Reply is rendered by the gateway as an embed or card.
type Reply struct {
	Kind        ReplyKind    `json:"kind"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []ReplyField `json:"fields,omitempty"`
}

type ReplyField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (r *Reply) AddField(name, value string) {
	r.Fields = append(r.Fields, ReplyField{Name: name, Value: value})
}

func errorReply(message string) CommandResponse {
	return CommandResponse{Reply: Reply{Kind: ReplyError, Title: "Error", Description: message}}
}
