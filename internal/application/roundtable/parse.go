package roundtable

import (
	"errors"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

var (
	errMalformed = errors.New("malformed response")

	fencedBlock  = regexp.MustCompile("```[a-zA-Z]*\\s*\\n?([\\s\\S]*?)```")
	bracketArray = regexp.MustCompile(`\[[\s\S]*\]`)
	listMarker   = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
	pythonFence  = regexp.MustCompile("```(?:python|py)?[ \\t]*\\n([\\s\\S]*?)```")
)

// jsonBody pulls the JSON document out of an LLM reply that may wrap it in a
// code fence or surround it with prose.
func jsonBody(raw string) string {
	s := strings.TrimSpace(raw)
	if gjson.Valid(s) {
		return s
	}
	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		if inner := strings.TrimSpace(m[1]); gjson.Valid(inner) {
			return inner
		}
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	if cand := s[start : end+1]; gjson.Valid(cand) {
		return cand
	}
	return ""
}

func parseProfiles(raw string) ([]panel.Profile, error) {
	body := jsonBody(raw)
	if body == "" {
		return nil, errMalformed
	}
	list := gjson.Get(body, "experts")
	if !list.IsArray() {
		list = gjson.Parse(body)
	}
	if !list.IsArray() {
		return nil, errMalformed
	}
	var out []panel.Profile
	list.ForEach(func(_, item gjson.Result) bool {
		out = append(out, panel.Profile{
			Name:       item.Get("name").String(),
			Title:      item.Get("title").String(),
			Specialty:  item.Get("specialty").String(),
			Background: item.Get("background").String(),
		})
		return true
	})
	return out, nil
}

// splitLines returns non-blank lines with list markers removed.
func splitLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseAnswers reads {"answers":[...]} and falls back to one answer per line.
func parseAnswers(raw string) []string {
	if body := jsonBody(raw); body != "" {
		list := gjson.Get(body, "answers")
		if !list.IsArray() {
			list = gjson.Parse(body)
		}
		if list.IsArray() {
			var out []string
			for _, a := range list.Array() {
				out = append(out, strings.TrimSpace(a.String()))
			}
			return out
		}
	}
	return splitLines(raw)
}

// FollowUp is one suggested next question.
type FollowUp struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

const maxFollowUps = 3

// parseFollowUps reads {"questions":[{text,context}]}; if that fails it
// extracts the first bracketed array from the text. Returns nil on failure.
func parseFollowUps(raw string) []FollowUp {
	var list gjson.Result
	if body := jsonBody(raw); body != "" {
		list = gjson.Get(body, "questions")
		if !list.IsArray() && gjson.Parse(body).IsArray() {
			list = gjson.Parse(body)
		}
	}
	if !list.IsArray() {
		m := bracketArray.FindString(raw)
		if m == "" || !gjson.Valid(m) {
			return nil
		}
		list = gjson.Parse(m)
	}

	var out []FollowUp
	for _, item := range list.Array() {
		f := FollowUp{}
		if item.IsObject() {
			f.Text = strings.TrimSpace(item.Get("text").String())
			f.Context = strings.TrimSpace(item.Get("context").String())
		} else {
			f.Text = strings.TrimSpace(item.String())
		}
		if f.Text == "" {
			continue
		}
		out = append(out, f)
		if len(out) == maxFollowUps {
			break
		}
	}
	return out
}
