package adminbot

import (
	"strings"
)

// CallbackAction is the unique part of an inline button's callback data.
// Telebot encodes such buttons as "\f<unique>|<payload>".
type CallbackAction string

const (
	CallbackApproveSubmission CallbackAction = "approve_sub"
	CallbackRejectSubmission  CallbackAction = "reject_sub"
	CallbackApproveWithdrawal CallbackAction = "approve_wd"
	CallbackRejectWithdrawal  CallbackAction = "reject_wd"
)

var callbackActions = []CallbackAction{
	CallbackApproveSubmission,
	CallbackRejectSubmission,
	CallbackApproveWithdrawal,
	CallbackRejectWithdrawal,
}

func (a CallbackAction) String() string {
	return string(a)
}

func (a CallbackAction) prefix() string {
	return "\f" + a.String()
}

func (a CallbackAction) DataMatches(data string) bool {
	return data == a.prefix() || strings.HasPrefix(data, a.prefix()+"|")
}

// Payload returns what follows the action in data, or "" if data is for another action.
func (a CallbackAction) Payload(data string) string {
	if !a.DataMatches(data) {
		return ""
	}
	return strings.TrimPrefix(strings.TrimPrefix(data, a.prefix()), "|")
}

func parseCallback(data string) (CallbackAction, string, bool) {
	for _, a := range callbackActions {
		if a.DataMatches(data) {
			return a, a.Payload(data), true
		}
	}
	return "", "", false
}
