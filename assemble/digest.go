package assemble

import "github.com/becomeliminal/mnemo-go-sdk/rank"

// Digest is a structured summary of one assembly's inputs, for
// observability and tests. Computed independently of the rendered
// payload: a truncated payload still reports the full input counts.
type Digest struct {
	Messages int
	Tasks    int
	Memories int

	TaskScoreMin   float64
	TaskScoreMax   float64
	MemoryScoreMin float64
	MemoryScoreMax float64
}

// Summarize builds the digest for one set of assembly inputs.
func (a *Assembler) Summarize(messageCount int, tasks, memories []rank.Match) Digest {
	d := Digest{
		Messages: messageCount,
		Tasks:    len(tasks),
		Memories: len(memories),
	}
	d.TaskScoreMin, d.TaskScoreMax = scoreRange(tasks)
	d.MemoryScoreMin, d.MemoryScoreMax = scoreRange(memories)
	return d
}

func scoreRange(matches []rank.Match) (min, max float64) {
	if len(matches) == 0 {
		return 0, 0
	}
	min, max = matches[0].Score, matches[0].Score
	for _, m := range matches[1:] {
		if m.Score < min {
			min = m.Score
		}
		if m.Score > max {
			max = m.Score
		}
	}
	return min, max
}
