package advisor

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhisek/atrisk/internal/features"
)

const systemPrompt = `You are assisting a university student advisor. A dropout-risk model has scored one student. Write a short, practical intervention note for the advisor, not for the student.`

func buildUserMessage(in Input) string {
	var b strings.Builder

	b.WriteString("Student indicators:\n")
	for i, spec := range features.All() {
		if x := in.Values[i]; math.IsNaN(x) {
			fmt.Fprintf(&b, "- %s: not answered\n", spec.Prompt)
		} else {
			fmt.Fprintf(&b, "- %s: %g\n", spec.Prompt, x)
		}
	}

	if r := in.Result; r != nil {
		fmt.Fprintf(&b, "\nModel result: %s (at-risk probability %.0f%%, at-risk flag %d)\n",
			r.Tier.Label(), r.Confidence, int(r.Prediction))
		b.WriteString("\nCall-outs:\n")
		for _, reason := range r.Reasons {
			fmt.Fprintf(&b, "- [%s] %s\n", reason.Polarity, reason.Text)
		}
		fmt.Fprintf(&b, "\nGPA forecast: %.2f -> %.2f (%s)\n", r.Forecast.Current, r.Forecast.Predicted, r.Forecast.Trend)
	}

	b.WriteString(`
Instructions:
1. Summarize the student's situation in 2-3 sentences using only the data above.
2. List up to 4 concerns, most pressing first. Skip concerns the data does not support.
3. Suggest 1-4 concrete actions the advisor can take (referrals, workload talks, study plans).
4. Pick a follow-up interval in weeks; sooner for higher risk.
Do not restate the probability as a certainty. Plain text only.`)

	return b.String()
}
