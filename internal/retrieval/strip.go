package retrieval

import "regexp"

// toolOutputBlock matches one embedded tool-output block:
//
//	\n---\n**<label>**<rest of line>\n```...```\n---\n?
//
// Go's regexp package is RE2-based and has no backreferences, so the
// closing fence can't be required to match the opening fence's exact
// backtick count the way a backreference would. Four-backtick fences are
// stripped first (matched greedily against a 4-backtick close), then
// three-backtick fences against whatever fenced content remains — the
// same two-pass trick any backreference-free regex engine needs here.
var (
	toolOutputBlock4 = regexp.MustCompile("\\n---\\n\\*\\*[^\\n]*\\*\\*[^\\n]*\\n````[\\s\\S]*?````\\n---\\n?")
	toolOutputBlock3 = regexp.MustCompile("\\n---\\n\\*\\*[^\\n]*\\*\\*[^\\n]*\\n```[\\s\\S]*?```\\n---\\n?")
)

// StripToolOutput removes every embedded tool-output block from content,
// matching the fenced-block convention described for tool call output.
func StripToolOutput(content string) string {
	content = toolOutputBlock4.ReplaceAllString(content, "")
	content = toolOutputBlock3.ReplaceAllString(content, "")
	return content
}
