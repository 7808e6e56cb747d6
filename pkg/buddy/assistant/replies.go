package assistant

// greeting pairs a trigger with its candidate replies. Greetings are checked
// in slice order.
type greeting struct {
	trigger string
	replies []string
}

var greetings = []greeting{
	{"hi", []string{"Heyy! Best hi ever 😎", "Hello! How's life?", "Hiya! What's up?"}},
	{"hello", []string{"Hello hello! How's your day?", "Hey! Glad you said hi 😄"}},
	{"good morning", []string{"Morning! Rise & shine ☀️", "Good morning bro! Coffee ready? ☕"}},
	{"good afternoon", []string{"Good afternoon! Lunch time 🍔", "Hey! Chill afternoon 😎"}},
	{"good evening", []string{"Evening vibes! Tea or coffee? ☕", "Good evening! Relax time 😄"}},
	{"good night", []string{"Night bro! Sweet dreams 🌙", "Sleep tight! 😴"}},
	{"thanks", []string{"Edisav le!", "Always bro! 😎"}},
}

var jokes = []string{
	"Skeleton fight ante, guts ledu kabatti fight avvaledu 😎",
	"Computer ki break kavali ante, sleep mode ki pampindi 🤣",
}

var quotes = []string{
	"Bro, chinna step tho start cheyyi… later, boom! 💥",
	"Stress? Oka deep breath, music blast, repeat 🔥",
}

var defaultResponses = []string{
	"😄 Ready! Cheppu em kavali?",
	"Bro, cheppandi… em kavali?",
	"Heyy! Ready to chat 😎",
}

var courseTriggers = []string{"learn online", "free courses", "study online", "learn new skills"}

const coursesReply = "Hey! Check LearnTrack for free courses! <a href='https://learntrack-a1d1a.web.app' target='_blank'>👉 Click here</a>"

// Fixed replies.
const (
	replyNoReminders      = "No reminders set."
	replyNoTasks          = "No tasks added yet."
	replyNoNotes          = "No notes saved yet."
	replyNoEvents         = "No events in calendar."
	replyWeatherNotFound  = "Weather info not found for this city."
	replyWeatherDecode    = "Failed to parse weather data."
	replyAIUnavailable    = "AI service unavailable."
	replyNoRoute          = "No route found."
	replyStoreFailure     = "Couldn't save that right now, try again in a bit."
	replyStoreReadFailure = "Couldn't load that right now, try again in a bit."
)
