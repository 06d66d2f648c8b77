package nexus

import (
	"fmt"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// Command is one semicolon-terminated span of tokens. Commands are created
// at parse time and immutable thereafter; document mutation splices whole
// commands in and out, never edits one.
type Command struct {
	tokens []tokenizer.Token
	name   string
}

func newCommand(tokens []tokenizer.Token) *Command {
	return &Command{tokens: tokens, name: commandName(tokens)}
}

// commandName derives a command name: leading non-word tokens are skipped,
// consecutive word tokens concatenate (comments inside the name are legal
// and dropped), and the result is upper-cased.
func commandName(tokens []tokenizer.Token) string {
	var sb strings.Builder
	started := false
	for _, t := range tokens {
		if !started {
			if t.Type != tokenizer.Word {
				continue
			}
			started = true
			sb.WriteString(t.Text)
			continue
		}
		switch t.Type {
		case tokenizer.Word:
			sb.WriteString(t.Text)
		case tokenizer.Comment:
			// Comments do not end the name.
		default:
			return strings.ToUpper(sb.String())
		}
	}
	return strings.ToUpper(sb.String())
}

// Name returns the upper-cased command name.
func (c *Command) Name() string { return c.name }

// Tokens returns the command's tokens, including the terminating semicolon.
// The returned slice must not be modified.
func (c *Command) Tokens() []tokenizer.Token { return c.tokens }

// String renders the command exactly as it appeared in the input.
func (c *Command) String() string { return tokenizer.Render(c.tokens) }

// IsBeginBlock reports whether this command opens a block.
func (c *Command) IsBeginBlock() bool { return c.name == "BEGIN" }

// IsEndBlock reports whether this command closes a block. ENDBLOCK is a
// historical synonym of END used by MacClade, PAUP and COMPONENT.
func (c *Command) IsEndBlock() bool { return c.name == "END" || c.name == "ENDBLOCK" }

// PayloadTokens returns the tokens between the command name and the final
// semicolon: leading whitespace and comments are skipped, then the name
// words, then the whitespace separating name and payload.
func (c *Command) PayloadTokens() []tokenizer.Token {
	body := c.tokens
	if n := len(body); n > 0 && body[n-1].IsSemicolon() {
		body = body[:n-1]
	}
	i := 0
	// Leading whitespace and comments.
	for i < len(body) && (body[i].IsWhitespace() || body[i].Type == tokenizer.Comment) {
		i++
	}
	// The name, up to the first whitespace.
	for i < len(body) && !body[i].IsWhitespace() {
		i++
	}
	// The separating whitespace run.
	for i < len(body) && body[i].IsWhitespace() {
		i++
	}
	return body[i:]
}

// NewCommand assembles a command from a name and a payload string. The name
// must lex to a single word; the payload may carry at most one semicolon,
// and only as its final character. A terminating semicolon is added when the
// payload lacks one. inBlock selects the indentation used when rendering.
func NewCommand(name, payload string, inBlock bool) (*Command, error) {
	nameTokens, err := tokenizer.Tokenize(name, tokenizer.DefaultOptions())
	if err != nil {
		return nil, err
	}
	if len(nameTokens) != 1 || nameTokens[0].Type != tokenizer.Word {
		return nil, fmt.Errorf("command name %q is not a single word", name)
	}

	lead := "\n"
	if inBlock {
		lead = "\n\t"
	}
	tokens := []tokenizer.Token{{Text: lead, Type: tokenizer.Whitespace}, nameTokens[0]}

	semicolons := 0
	if payload != "" {
		payloadTokens, err := tokenizer.Tokenize(payload, tokenizer.DefaultOptions())
		if err != nil {
			return nil, err
		}
		for i, t := range payloadTokens {
			if t.IsSemicolon() {
				semicolons++
				if i != len(payloadTokens)-1 {
					return nil, fmt.Errorf("payload for %s contains an interior semicolon", name)
				}
			}
		}
		if semicolons > 1 {
			return nil, fmt.Errorf("payload for %s contains multiple semicolons", name)
		}
		tokens = append(tokens, tokenizer.Token{Text: " ", Type: tokenizer.Whitespace})
		tokens = append(tokens, payloadTokens...)
	}
	if semicolons == 0 {
		tokens = append(tokens, tokenizer.Token{Text: ";", Type: tokenizer.Punctuation})
	}
	return newCommand(tokens), nil
}
