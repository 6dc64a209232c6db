package normalize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"alertscope/internal/clock"
	"alertscope/internal/models"
)

// AttributePrefix is the flattened form of the parsedMessage.attributes
// namespace every mapped field lives under.
const AttributePrefix = "parsedMessage_attributes_"

// DefaultAlertURLTemplate links an alert ID to its Opsgenie detail page.
const DefaultAlertURLTemplate = "https://zeta.app.opsgenie.com/alert/detail/%s/details"

// NotFound is the placeholder for missing Cluster and Zone values.
const NotFound = "Notfound"

const tagPrefix = AttributePrefix + "tags" + Separator

// fieldNames is the allow-list of flattened keys and their canonical names.
var fieldNames = map[string]string{
	AttributePrefix + "cluster":           "Cluster",
	AttributePrefix + "service":           "Service",
	AttributePrefix + "priority":          "Priority",
	AttributePrefix + "alertType":         "AlertType",
	AttributePrefix + "message":           "AlertName",
	AttributePrefix + "status":            "Status",
	AttributePrefix + "createdAt":         "CreatedAt",
	AttributePrefix + "updatedAt":         "UpdatedAt",
	AttributePrefix + "severity":          "Severity",
	AttributePrefix + "acknowledged":      "Acknowledged",
	AttributePrefix + "alertAckTime":      "AlertAckTime",
	AttributePrefix + "alertCloseTime":    "AlertCloseTime",
	AttributePrefix + "acknowledgedBy":    "AckBy",
	AttributePrefix + "closedBy":          "ClosedBy",
	AttributePrefix + "tinyId":            "TinyID",
	AttributePrefix + "responders_0_name": "Team",
	AttributePrefix + "alertId":           "AlertID",
	AttributePrefix + "runbook_url":       "RunbookUrl",
	AttributePrefix + "zoneId":            "Zone",
	AttributePrefix + "timeTakenToClose":  "TimeToClose",
	AttributePrefix + "bu":                "BU",
	AttributePrefix + "count":             "count",
}

// responderEmails are copied verbatim when present.
var responderEmails = []struct {
	key  string
	name string
}{
	{AttributePrefix + "responders_0_onCalls_0_contacts_0_emailId", "PrimaryResponderEmail"},
	{AttributePrefix + "responders_0_onCalls_1_contacts_0_emailId", "SecondaryResponderEmail"},
}

// defaults fill fields that are absent after mapping. Acknowledge is a
// distinct key from Acknowledged.
var defaults = []struct {
	name  string
	value string
}{
	{"Cluster", NotFound},
	{"Zone", NotFound},
	{"Acknowledge", "false"},
}

// conversions apply to a canonical field when its raw value is numeric.
var conversions = map[string]func(float64) any{
	"CreatedAt":      epochMillisToIndexTime,
	"UpdatedAt":      epochMillisToIndexTime,
	"AlertCloseTime": epochMillisToIndexTime,
	"AlertAckTime":   epochMillisToIndexTime,
	"TimeToClose":    millisToMinutes,
}

// Mapper converts flat records into ReadableAlerts.
type Mapper struct {
	alertURLTemplate string
	logger           *slog.Logger
}

// NewMapper creates a mapper. An empty template falls back to
// DefaultAlertURLTemplate.
func NewMapper(alertURLTemplate string, logger *slog.Logger) *Mapper {
	if alertURLTemplate == "" {
		alertURLTemplate = DefaultAlertURLTemplate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{
		alertURLTemplate: alertURLTemplate,
		logger:           logger,
	}
}

// Normalize flattens doc and maps the result.
func (m *Mapper) Normalize(doc models.RawAlert) models.ReadableAlert {
	return m.Map(Flatten(doc))
}

// Map applies the field table, conversions, derived fields and defaults to a
// flat record. Keys outside the table are dropped.
func (m *Mapper) Map(rec *FlatRecord) models.ReadableAlert {
	alert := make(models.ReadableAlert)

	for _, key := range rec.keys {
		name, ok := fieldNames[key]
		if !ok {
			continue
		}
		value := rec.values[key]
		if convert, ok := conversions[name]; ok {
			if n, ok := ParseNumber(value); ok {
				value = convert(n)
			}
		}
		alert[name] = value
	}

	for _, f := range responderEmails {
		if v, ok := rec.Get(f.key); ok {
			alert[f.name] = v
		}
	}

	if alert.Has("CreatedAt") && alert.Has("AlertAckTime") && Truthy(alert["Acknowledged"]) {
		minutes, err := minutesBetween(alert["CreatedAt"], alert["AlertAckTime"])
		if err != nil {
			m.logger.Error("Error calculating TimeToAck",
				"alert_id", alert["AlertID"],
				"created_at", alert["CreatedAt"],
				"ack_time", alert["AlertAckTime"],
				"error", err,
			)
			alert["TimeToAck"] = nil
		} else {
			alert["TimeToAck"] = minutes
		}
	}

	alert["Tags"] = joinTags(rec)

	for _, d := range defaults {
		if !alert.Has(d.name) {
			alert[d.name] = d.value
		}
	}

	if id := alertID(alert["AlertID"]); id != "" {
		alert["AlertURL"] = fmt.Sprintf(m.alertURLTemplate, id)
	}

	return alert
}

// ParseNumber reports whether v is numeric, or a string holding a finite
// number, and returns it as float64. Booleans and nil are never numeric.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Truthy interprets an acknowledgement flag. Strings are parsed with
// strconv.ParseBool and otherwise count as true when non-empty, so "false"
// and "0" are not acknowledged even though they are non-empty.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			return b
		}
		return x != ""
	default:
		if n, ok := ParseNumber(x); ok {
			return n != 0
		}
		return true
	}
}

func epochMillisToIndexTime(ms float64) any {
	return clock.FormatIndex(clock.FromEpochMillis(ms))
}

func millisToMinutes(ms float64) any {
	return ms / 60000
}

// minutesBetween parses two IndexLayout timestamps and returns end - start
// in minutes.
func minutesBetween(start, end any) (float64, error) {
	s, ok := start.(string)
	if !ok {
		return 0, fmt.Errorf("created time %v is not a timestamp string", start)
	}
	e, ok := end.(string)
	if !ok {
		return 0, fmt.Errorf("ack time %v is not a timestamp string", end)
	}
	st, err := clock.ParseIndex(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse created time: %w", err)
	}
	et, err := clock.ParseIndex(e)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ack time: %w", err)
	}
	return et.Sub(st).Minutes(), nil
}

func joinTags(rec *FlatRecord) string {
	var tags []string
	for _, key := range rec.keys {
		if !strings.HasPrefix(key, tagPrefix) {
			continue
		}
		tags = append(tags, scalarString(rec.values[key]))
	}
	return strings.Join(tags, ", ")
}

func alertID(v any) string {
	if v == nil {
		return ""
	}
	return scalarString(v)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
