package checkin

// Question is one entry of the ordered intake questionnaire. Key identifies
// the answer in storage, Label names it in the forwarded summary, Prompt is
// what the user sees.
type Question struct {
	Key    string
	Label  string
	Prompt string
}

// Questions is the fixed question order. Immutable after init; safe for
// unsynchronized concurrent reads.
var Questions = []Question{
	{Key: "name", Label: "Name", Prompt: "Question 1/7 — What is your full name?"},
	{Key: "phone", Label: "Phone", Prompt: "Question 2/7 — What phone number can we reach you on?"},
	{Key: "city", Label: "City", Prompt: "Question 3/7 — Which city are you checking in from?"},
	{Key: "model", Label: "Model", Prompt: "Question 4/7 — What is the make and model?"},
	{Key: "plate", Label: "Plate", Prompt: "Question 5/7 — What is the registration plate?"},
	{Key: "mileage", Label: "Mileage", Prompt: "Question 6/7 — What is the current mileage?"},
	{Key: "notes", Label: "Notes", Prompt: "Question 7/7 — Anything else we should know? Send \"-\" if not."},
}

// PhotoSlots is the fixed photo upload order. The Nth accepted photo is
// labelled with the Nth slot, so arrival order is slot order.
var PhotoSlots = []string{"Front", "Rear", "Side"}
