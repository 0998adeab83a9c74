package translation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"subflick/internal/captions"
)

// Gateway applies the translation policy around a Model. It never returns an
// error: every failure is reported in the Outcome.
type Gateway struct {
	model           Model
	defaultLanguage string
	maxInputChars   int
	log             logrus.FieldLogger
}

// GatewayConfig holds the policy settings. A MaxInputChars of zero means no limit.
type GatewayConfig struct {
	DefaultLanguage string
	MaxInputChars   int
}

// NewGateway returns a Gateway. A nil model makes every non-empty request fail.
func NewGateway(model Model, cfg GatewayConfig, log logrus.FieldLogger) *Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Gateway{
		model:           model,
		defaultLanguage: cfg.DefaultLanguage,
		maxInputChars:   cfg.MaxInputChars,
		log:             log.WithField("component", "translation"),
	}
}

// DefaultLanguage is the target used when a request names none.
func (g *Gateway) DefaultLanguage() string { return g.defaultLanguage }

// Translate runs one request through the policy.
func (g *Gateway) Translate(ctx context.Context, req Request) Outcome {
	lang := LanguageName(req.TargetLanguage, g.defaultLanguage)
	out := Outcome{TargetLanguage: lang}
	log := g.log.WithFields(logrus.Fields{"target_language": lang, "kind": string(req.Kind)})

	if strings.TrimSpace(req.Text) == "" {
		out.Status = StatusSkipped
		out.Detail = "nothing to translate"
		return out
	}
	if n := utf8.RuneCountInString(req.Text); g.maxInputChars > 0 && n > g.maxInputChars {
		out.Status = StatusSkipped
		out.Detail = fmt.Sprintf("text is %d characters long, which exceeds the translation limit of %d", n, g.maxInputChars)
		log.WithField("chars", n).Info("translation skipped, input too long")
		return out
	}
	if g.model == nil {
		out.Status = StatusFailed
		out.Detail = "no translation model configured"
		return out
	}

	start := time.Now()
	reply, err := g.model.Complete(ctx, BuildPrompt(req.Kind, req.Text, lang))
	if err != nil {
		out.Status = StatusFailed
		out.Detail = err.Error()
		log.WithError(err).Warn("translation failed")
		return out
	}
	reply = stripFence(reply)
	log = log.WithField("elapsed", time.Since(start).String())

	if req.Kind == KindTranscript {
		out.Status = StatusTranslated
		out.Text = reply
		log.Info("transcript translated")
		return out
	}

	out = checkCaptions(out, req.Text, reply)
	entry := log.WithField("status", string(out.Status))
	if len(out.Issues) > 0 {
		entry = entry.WithField("issues", len(out.Issues))
	}
	entry.Info("captions translated")
	return out
}

// checkCaptions compares the reply's structure with the source payload.
func checkCaptions(out Outcome, source, reply string) Outcome {
	original, err := captions.Parse(source)
	if err != nil {
		out.Status = StatusMismatch
		out.Text = reply
		out.Detail = "source captions could not be parsed, structure was not checked"
		out.Issues = []string{"unparsable source: " + err.Error()}
		return out
	}
	translated, err := captions.Parse(reply)
	if err != nil {
		out.Status = StatusMismatch
		out.Text = reply
		out.Detail = "translated captions could not be parsed"
		out.Issues = []string{"unparsable: " + err.Error()}
		return out
	}

	issues := captions.Compare(original, translated)
	if len(issues) == 0 {
		out.Status = StatusTranslated
		out.Text = captions.Render(translated)
		return out
	}
	if fixed, ok := captions.Reconcile(original, translated); ok {
		out.Status = StatusRepaired
		out.Text = captions.Render(fixed)
		out.Detail = "numbering or timings changed by the model were restored"
		out.Issues = issues
		return out
	}
	out.Status = StatusMismatch
	out.Text = reply
	out.Detail = "translated captions do not line up with the original"
	out.Issues = issues
	return out
}
