package oracle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rseabduce/abduce/model"
)

// ParsedLog is the result of parsing one engine invocation's log:
// whether the goal-unreachable marker appeared, every model block
// found (normalized), every leak record, and the final CT status
// line if present.
type ParsedLog struct {
	GoalUnreachable bool
	Models          []model.Bindings
	Leaks           []LeakRecord
	CTStatus        *CTStatus
}

var (
	modelHeaderRe = regexp.MustCompile(`^Model\s+@\s*(0x[0-9a-fA-F]+)?\s*:?\s*$`)
	modelLineRe   = regexp.MustCompile(`^\s*([^:]+?)\s*:\s*(.+?)\s*$`)
	leakRe        = regexp.MustCompile(`Instruction\s+(0x[0-9a-fA-F]+)\s+has\s+(\S+)\s+leak`)
	statusRe      = regexp.MustCompile(`Program status is:\s*(secure|insecure|unknown)`)
	goalUnreachRe = regexp.MustCompile(`Goal unreachable\.`)
)

// ParseLog parses the raw textual log emitted by one engine
// invocation into its structured records (§6's oracle engine
// contract). Unrecognized lines are ignored, matching the original
// parser's chunk-dispatch fallthrough.
func ParseLog(raw string) ParsedLog {
	var out ParsedLog
	lines := strings.Split(raw, "\n")

	var current model.Bindings
	flush := func() {
		if current != nil {
			out.Models = append(out.Models, current)
			current = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		switch {
		case goalUnreachRe.MatchString(trimmed):
			out.GoalUnreachable = true
		case modelHeaderRe.MatchString(trimmed):
			flush()
			current = model.Bindings{}
		case current != nil && modelLineRe.MatchString(trimmed):
			m := modelLineRe.FindStringSubmatch(trimmed)
			key, val := normalizeModelKey(m[1]), normalizeModelValue(m[2])
			if key != "" {
				current[key] = val
			}
		case leakRe.MatchString(trimmed):
			m := leakRe.FindStringSubmatch(trimmed)
			addr, _ := strconv.ParseUint(m[1][2:], 16, 64)
			out.Leaks = append(out.Leaks, LeakRecord{Addr: addr, Kind: m[2]})
		case statusRe.MatchString(trimmed):
			m := statusRe.FindStringSubmatch(trimmed)
			var st CTStatus
			switch m[1] {
			case "secure":
				st = Secure
			case "insecure":
				st = Insecure
			default:
				st = CTUnknown
			}
			out.CTStatus = &st
		default:
			if current != nil && trimmed == "" {
				flush()
			}
		}
	}
	flush()
	return out
}

// normalizeModelKey drops engine-internal SSA tags ("!"-suffixed) and
// pseudo-source names ("from_file"), and rewrites the "#x" BINSEC hex
// prefix to "0x" (§4.2 model normalization).
func normalizeModelKey(raw string) string {
	k := strings.TrimSpace(raw)
	if k == "from_file" || strings.HasPrefix(k, "bs_unknown1_for_") || strings.HasPrefix(k, "dummy") || strings.HasPrefix(k, "bs") {
		return ""
	}
	if idx := strings.Index(k, "!"); idx >= 0 {
		k = k[:idx]
	}
	if strings.HasPrefix(k, "#x") {
		k = "0x" + k[2:]
	}
	k = strings.TrimPrefix(k, "undef_AF_1___")
	k = strings.TrimSuffix(k, "_")
	return k
}

// normalizeModelValue reduces register-block entries of the form
// "{val;size}" to val, rewrites the "#x" BINSEC hex prefix to "0x",
// and adds a "0x" prefix to a bare hex value, matching the original's
// value normalization.
func normalizeModelValue(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.Contains(v, ";") {
		v = strings.SplitN(v, ";", 2)[0]
	}
	v = strings.TrimSpace(strings.Trim(v, "{}"))
	if strings.HasPrefix(v, "#x") {
		v = "0x" + v[2:]
	}
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") && isHexDigits(v) {
		v = "0x" + v
	}
	return v
}

func isHexDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') && !(r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
