package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type Template string

const (
	ErrorStatus   Template = "errorStatus"
	SuccessStatus Template = "successStatus"
)

type Locals struct {
	AppLink string `json:"appLink"`
	AppIcon string `json:"appIcon"`
	AppName string `json:"appName"`
}

type AlertEvent struct {
	MonitorID int
	Emails    string // serialized recipient list
	Template  Template
	Locals    Locals
}

// Mailer delivers one templated message to one address.
type Mailer interface {
	Send(ctx context.Context, to string, template Template, locals Locals) error
}

// ParseRecipients decodes a JSON list of addresses, dropping blanks and duplicates.
func ParseRecipients(emails string) ([]string, error) {
	var list []string
	if err := json.Unmarshal([]byte(emails), &list); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}
	list = lo.Map(list, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(list)), nil
}
