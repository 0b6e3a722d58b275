// Package robots parses robots.txt files, answers permission queries for a crawler identity
// and keeps fetched robots.txt bodies per origin for a limited time.
package robots

import (
	"net/url"
	"strings"
)

// Rules is a parsed robots.txt file. The zero value has no rules and allows everything.
type Rules struct {
	groups []*group
}

type group struct {
	agents []string // lower-cased product tokens, "*" for any agent
	rules  []rule
}

type rule struct {
	pattern string
	allow   bool
}

// CanFetch reports whether agent may fetch targetURL according to robotsTxt.
// Text that can not be understood yields no rules, so the answer is true.
func CanFetch(robotsTxt, agent, targetURL string) bool {
	return Parse(robotsTxt).Allowed(agent, targetURL)
}

// Parse reads User-agent groups with their Allow and Disallow directives.
// Unknown directives and lines without a colon are skipped. It never fails.
func Parse(robotsTxt string) *Rules {
	r := &Rules{}
	var current *group
	collectingAgents := false

	robotsTxt = strings.TrimPrefix(robotsTxt, "\ufeff")
	robotsTxt = strings.ReplaceAll(robotsTxt, "\r\n", "\n")
	robotsTxt = strings.ReplaceAll(robotsTxt, "\r", "\n")

	for _, line := range strings.Split(robotsTxt, "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			token := agentToken(value)
			if token == "" {
				continue
			}
			// consecutive User-agent lines share one group
			if current == nil || !collectingAgents {
				current = &group{}
				r.groups = append(r.groups, current)
			}
			current.agents = append(current.agents, token)
			collectingAgents = true
		case "allow", "disallow":
			if current == nil {
				continue // rules before the first User-agent line belong to nobody
			}
			collectingAgents = false
			// an empty Disallow allows everything, an empty Allow says nothing
			if value == "" {
				continue
			}
			current.rules = append(current.rules, rule{
				pattern: normalizePath(value),
				allow:   key == "allow",
			})
		}
	}

	return r
}

// Allowed reports whether agent may fetch targetURL.
// The group with the longest User-agent token that prefixes the agent name applies ("*" is the weakest match).
// Inside that group the longest matching pattern wins; Allow wins a tie. No matching rule means allowed.
func (r *Rules) Allowed(agent, targetURL string) bool {
	rules := r.rulesFor(agent)
	if len(rules) == 0 {
		return true
	}
	path, ok := targetPath(targetURL)
	if !ok {
		return true
	}

	bestLen := -1
	allowed := true
	for _, rl := range rules {
		if !matchPattern(rl.pattern, path) {
			continue
		}
		l := len(rl.pattern)
		if l > bestLen || (l == bestLen && rl.allow) {
			bestLen = l
			allowed = rl.allow
		}
	}

	return allowed
}

func (r *Rules) rulesFor(agent string) []rule {
	probe := agentToken(agent)
	best := -1
	var matched []*group
	for _, g := range r.groups {
		score := g.matchScore(probe)
		if score < 0 {
			continue
		}
		if score > best {
			best = score
			matched = matched[:0]
		}
		if score == best {
			matched = append(matched, g)
		}
	}

	var rules []rule
	for _, g := range matched {
		rules = append(rules, g.rules...)
	}
	return rules
}

// matchScore returns the length of the longest agent token that prefixes probe, 0 for "*", -1 for no match.
func (g *group) matchScore(probe string) int {
	score := -1
	for _, a := range g.agents {
		if a == "*" {
			score = max(score, 0)
			continue
		}
		if probe != "" && strings.HasPrefix(probe, a) {
			score = max(score, len(a))
		}
	}
	return score
}

// agentToken lower-cases the product name and drops the version, "OrgProbe/2.0" becomes "orgprobe".
func agentToken(agent string) string {
	agent = strings.TrimSpace(agent)
	if i := strings.IndexByte(agent, '/'); i >= 0 {
		agent = agent[:i]
	}
	return strings.ToLower(strings.TrimSpace(agent))
}

func targetPath(targetURL string) (string, bool) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return "", false
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return normalizePath(p), true
}

func normalizePath(p string) string {
	if unescaped, err := url.PathUnescape(p); err == nil {
		return unescaped
	}
	return p
}

// matchPattern matches path against a robots.txt path pattern.
// Plain patterns are prefixes; "*" matches any run of characters and a trailing "$" anchors the end.
func matchPattern(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	if !anchored && !strings.Contains(pattern, "*") {
		return strings.HasPrefix(path, pattern)
	}

	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	pos := len(parts[0])
	if len(parts) == 1 {
		return pos == len(path)
	}

	last := len(parts) - 1
	for _, part := range parts[1:last] {
		idx := strings.Index(path[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	if anchored {
		return len(path)-len(parts[last]) >= pos && strings.HasSuffix(path, parts[last])
	}
	return strings.Contains(path[pos:], parts[last])
}
