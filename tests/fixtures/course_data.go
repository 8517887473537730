package fixtures

import (
	"fmt"
	"math/rand"
)

// CourseUser is a test participant. FullName is what the users table carries
// and what enriched payloads should surface.
type CourseUser struct {
	ID       string
	FullName string
}

// CourseScenario describes one course worth of participants and, for
// course_video deployments, the videos whose rooms they chat in.
type CourseScenario struct {
	CourseID string
	VideoIDs []string
	Users    []*CourseUser
}

// ScriptedMessage is one step of a scripted conversation.
type ScriptedMessage struct {
	SenderID string
	Content  string
	DelayMs  int
}

// ChatScript is a conversation the scenario runner can replay.
type ChatScript struct {
	Name     string
	Messages []*ScriptedMessage
}

var firstNames = []string{
	"Ada", "Grace", "Alan", "Edsger", "Barbara", "Donald", "Leslie", "Tony",
	"Margaret", "Niklaus", "Ken", "Dennis", "Frances", "John", "Radia",
}

var lastNames = []string{
	"Lovelace", "Hopper", "Turing", "Dijkstra", "Liskov", "Knuth", "Lamport",
	"Hoare", "Hamilton", "Wirth", "Thompson", "Ritchie", "Allen", "Backus",
	"Perlman",
}

var courseTopics = []string{
	"intro-to-go", "distributed-systems", "databases", "networking",
	"operating-systems", "compilers", "algorithms", "web-security",
}

// GenerateCourseScenario builds a course with the given participant and
// video counts. IDs are unique per call so parallel tests never share rooms
// or database rows.
func GenerateCourseScenario(userCount, videoCount int) *CourseScenario {
	suffix := rand.Int63()

	scenario := &CourseScenario{
		CourseID: fmt.Sprintf("%s-%d", courseTopics[rand.Intn(len(courseTopics))], suffix),
		VideoIDs: make([]string, videoCount),
		Users:    make([]*CourseUser, userCount),
	}

	for i := 0; i < videoCount; i++ {
		scenario.VideoIDs[i] = fmt.Sprintf("lecture-%d-%d", i+1, suffix)
	}

	for i := 0; i < userCount; i++ {
		first := firstNames[rand.Intn(len(firstNames))]
		last := lastNames[rand.Intn(len(lastNames))]
		scenario.Users[i] = &CourseUser{
			ID:       fmt.Sprintf("user-%d-%d", i+1, suffix),
			FullName: fmt.Sprintf("%s %s", first, last),
		}
	}

	return scenario
}

// FirstVideo returns the scenario's first video ID, or "" when the scenario
// has none (course scope).
func (s *CourseScenario) FirstVideo() string {
	if len(s.VideoIDs) == 0 {
		return ""
	}
	return s.VideoIDs[0]
}

// UserIDs returns just the participant IDs, in scenario order.
func (s *CourseScenario) UserIDs() []string {
	ids := make([]string, len(s.Users))
	for i, u := range s.Users {
		ids[i] = u.ID
	}
	return ids
}

// GenerateDiscussionScript builds a round-robin conversation where every
// participant contributes messagesPerUser messages. Delays stay small enough
// for tests while still interleaving senders.
func GenerateDiscussionScript(scenario *CourseScenario, messagesPerUser int) *ChatScript {
	prompts := []string{
		"Does anyone understand the part about %s?",
		"I think the key insight is %s.",
		"The lecture example for %s finally clicked for me.",
		"Can someone re-explain %s?",
		"I found a good resource on %s, sharing after class.",
	}
	subjects := []string{
		"goroutine scheduling", "write-ahead logging", "vector clocks",
		"backpressure", "consistent hashing", "the two generals problem",
	}

	script := &ChatScript{Name: "round-robin discussion"}
	for round := 0; round < messagesPerUser; round++ {
		for _, user := range scenario.Users {
			prompt := prompts[rand.Intn(len(prompts))]
			subject := subjects[rand.Intn(len(subjects))]
			script.Messages = append(script.Messages, &ScriptedMessage{
				SenderID: user.ID,
				Content:  fmt.Sprintf(prompt, subject),
				DelayMs:  10 + rand.Intn(30),
			})
		}
	}
	return script
}

// GenerateQAScript builds a short exchange where the first participant asks
// and the second answers, repeated rounds times. Useful when a test needs a
// deterministic sender order.
func GenerateQAScript(scenario *CourseScenario, rounds int) *ChatScript {
	if len(scenario.Users) < 2 {
		panic("QA script needs at least two participants")
	}

	asker := scenario.Users[0]
	answerer := scenario.Users[1]

	script := &ChatScript{Name: "question and answer"}
	for i := 0; i < rounds; i++ {
		script.Messages = append(script.Messages,
			&ScriptedMessage{
				SenderID: asker.ID,
				Content:  fmt.Sprintf("Question %d: why does this work?", i+1),
				DelayMs:  20,
			},
			&ScriptedMessage{
				SenderID: answerer.ID,
				Content:  fmt.Sprintf("Answer %d: because of the invariant.", i+1),
				DelayMs:  20,
			},
		)
	}
	return script
}
