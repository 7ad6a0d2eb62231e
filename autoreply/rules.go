// Package autoreply answers some inquirer messages on behalf of the listing owner.
// A message is matched against an ordered keyword table and, when a rule fires,
// the rule's reply is delivered as the owner after a fixed delay.
package autoreply

import "time"

// DefaultDelay is how long an automated reply waits before being delivered.
const DefaultDelay = 1500 * time.Millisecond

// Rule pairs a set of keywords with the reply they trigger.
// Keywords are matched as case-insensitive substrings.
type Rule struct {
	Keywords []string
	Reply    string
}

// DefaultRules is listed in priority order: the first matching rule wins.
var DefaultRules = []Rule{
	{
		Keywords: []string{"available", "still have this"},
		Reply:    "Hello! Yes, this property is still available. Feel free to ask any other questions you may have.",
	},
	{
		Keywords: []string{"contact", "phone", "number"},
		Reply:    "You can reach the landlord by replying to this message. For urgent matters, their contact number is 555-123-4567.",
	},
	{
		Keywords: []string{"help", "support"},
		Reply:    "This is an automated message. The landlord will get back to you shortly. If you have questions about availability or contact info, please ask directly.",
	},
}
