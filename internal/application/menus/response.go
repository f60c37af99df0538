package menus

import "github.com/afritokeni/ussd-gateway/internal/domain/entities/session"

// Kind discriminates handler results
type Kind int

const (
	KindContinue Kind = iota
	KindEnd
	// KindDelegate asks the dispatcher to run another handler in the same round trip
	KindDelegate
)

func (k Kind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindEnd:
		return "end"
	case KindDelegate:
		return "delegate"
	}
	return "unknown"
}

// Response is what a handler decides for one input
type Response struct {
	Kind   Kind
	Body   string
	Target session.Menu
	Input  string
}

// Continue keeps the session open
func Continue(body string) Response {
	return Response{Kind: KindContinue, Body: body}
}

// End terminates the session
func End(body string) Response {
	return Response{Kind: KindEnd, Body: body}
}

// Delegate hands input to the handler of target
func Delegate(target session.Menu, input string) Response {
	return Response{Kind: KindDelegate, Target: target, Input: input}
}

// Render formats a continue or end response for the gateway
func (r Response) Render() string {
	return Format(r.Kind == KindContinue, r.Body)
}
