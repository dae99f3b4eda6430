package classifier

import "fmt"

type Verdict string

const (
	Pollution Verdict = "pollution"
	Clean     Verdict = "clean"
	Unrelated Verdict = "unrelated"
)

// label pairs a verdict with the text prompt it is scored against.
type label struct {
	verdict Verdict
	prompt  string
}

// labels is ordered: on equal scores the earlier label wins.
var labels = []label{
	{Pollution, "environmental pollution"},
	{Clean, "clean natural environment"},
	{Unrelated, "not related to environment"},
}

func prompts() []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.prompt
	}
	return out
}

func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case Pollution, Clean, Unrelated:
		return v, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}
