package services

import "fmt"

const claimInstructions = "To claim your ticket, respond to this message with your email address and your ticket will be sent to your mailbox."

const (
	ticketSentMessage   = "Kindly check your mail, your ticket has been sent!"
	ticketFailedMessage = "Looks like that mail did not get sent. Please try again.\n\n" + claimInstructions
	invalidEmailMessage = "That doesn't seem look like a valid email address.\n\n" + claimInstructions
	rateLimitedMessage  = "You are sending emails a little too quickly. Please wait a moment and try again."
)

func welcomeMessage(name string) string {
	return fmt.Sprintf("Hey %s!\n\n"+
		"Welcome to the SMTP Express Discord Server, where the elite hangout 😌. \n\n"+
		"I am the Express bot and I am officially inviting you, on behalf of the entire SMTP Express team, \n"+
		"to join us for our product launch happening on the 27th of January, 2024.\n\n"+
		"As a member of our discord server, you are eligible for a free ticket to the launch party.\n\n"+
		"%s\n\n"+
		"See you there!!", name, claimInstructions)
}
