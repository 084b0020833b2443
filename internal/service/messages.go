package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/huguadventures/travel-assistant-go/internal/config"
	"github.com/huguadventures/travel-assistant-go/internal/util"
)

const (
	shortenedNotice     = "\n\n(Shortened to fit WhatsApp limits.)"
	shortenedViewNotice = "\n\n(Shortened. Please request a new PDF itinerary if needed.)"

	msgDidNotUnderstand = "Sorry, I didn’t understand that.\n\n"

	msgAskTourDest = "Awesome! 🎟\nWhich *city or destination* are you interested in for tours?\n\n" +
		"Example: *Nairobi*, *Diani*, *Dubai*"
	msgAskHotelDest = "Great! 🏨\nWhich *city or area* do you want to stay in?\n\n" +
		"Example: *Nairobi CBD*, *Westlands*, *Diani Beach*"
	msgAskFlightRoute = "✈️ Nice!\nPlease type your route in this format:\n\n" +
		"*From City → To City*\nExample: *Nairobi → Cape Town*"
	msgAskQuestion = "Sure! ✨\nAsk me anything about *Kenya, East Africa, or trip planning* and I’ll do my best to help."
	msgAskInspiration = "Love it! 🌍✨\nTell me a bit about what you’re dreaming of.\n\n" +
		"You can reply in *one message* like this:\n" +
		"*From*: (your country or city)\n" +
		"*Where to*: (region or “surprise me”)\n" +
		"*Number of days*:\n" +
		"*Budget*: low / mid / luxury\n" +
		"*Who*: solo / couple / family / friends\n" +
		"*Travel month*:\n\n" +
		"Example:\n" +
		"“From Nairobi, 4–5 days, mid-budget, for a couple, somewhere beachy in April.”"

	detailsFormat = "*Destination(s)*:\n" +
		"*Number of days*:\n" +
		"*Rough budget* (low / mid / luxury):\n" +
		"*Travel month*:"

	msgUpsellNudge = "Got it 👍\nIf you change your mind, just type *YES* for a custom itinerary, or *MENU* to see options again."

	msgPaymentError = "Sorry 😔 I had trouble preparing the payment link. Please type *MENU* and try again in a moment."
	msgGlobalError  = "Oops 😅 something went wrong on my side. Please type *MENU* to start again."

	msgNoPaidItinerary = "I couldn’t find any paid itineraries for this number yet. " +
		"You can get one by choosing *5* from the main menu."
	msgItineraryMissingText = "I have your itinerary, but I couldn’t load the details."
	msgViewError            = "Sorry, I had trouble loading your itinerary. Please try again in a moment."
	msgItineraryPreparing   = "Your payment is confirmed ✅ and your itinerary is still being prepared. " +
		"I’ll send it here shortly."
	msgItineraryRetrying = "Your payment is confirmed ✅ but your itinerary hadn’t reached you yet, " +
		"so I’m preparing it again now. It will arrive here shortly."
	msgDeliveryFailed = "Sorry 😔 your payment went through, but I had trouble preparing your itinerary. " +
		"Please type *ITINERARY* in a few minutes and I’ll try again."

	msgNoEditableItinerary = "I couldn’t find a paid itinerary to edit. You can request one by choosing *5* from the main menu."
	msgEditNotFound        = "Sorry, I couldn't find an editable itinerary for you."
	msgEditPrepareError    = "Sorry, I hit a problem while preparing your edit. Please try again shortly."
	msgEditUpdateError     = "Sorry, I hit a problem while updating your itinerary. " +
		"Please try again shortly or type *MENU* to go back."
	msgEditPrompt = "No problem! 😊\nPlease send your *updated trip details* (or describe the changes you’d like). " +
		"I’ll regenerate your itinerary based on your new message."
	msgEditQueued = "Thanks! ✍️ I'm updating your itinerary now and will send the new version here shortly."

	msgPDFResent = "✅ Your itinerary PDF has been sent. If you don’t see it, reply with *ITINERARY* and I’ll resend the text version."

	defaultDestination = "your trip"
)

// Messages renders the user-facing texts that depend on configuration.
type Messages struct {
	Brand      string
	PriceLabel string
	EditWindow time.Duration
	Location   *time.Location
}

// windowSpan splits the edit window into a count and a unit, in whole days
// when it divides evenly.
func (m Messages) windowSpan() (int, string) {
	if m.EditWindow%(24*time.Hour) == 0 {
		return int(m.EditWindow / (24 * time.Hour)), "day"
	}
	return int(m.EditWindow / time.Hour), "hour"
}

func (m Messages) windowLabel() string {
	n, unit := m.windowSpan()
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func (m Messages) windowAdjective() string {
	n, unit := m.windowSpan()
	return fmt.Sprintf("%d-%s", n, unit)
}

func (m Messages) Menu() string {
	return "Hi 👋, I’m your *" + m.Brand + " Travel Assistant*.\n\n" +
		"What would you like to do today?\n" +
		"1️⃣ Find *tours & activities*\n" +
		"2️⃣ Find *hotels / stays*\n" +
		"3️⃣ Find *flights*\n" +
		"4️⃣ Ask a *travel question*\n" +
		"5️⃣ Get a *custom itinerary* (from *" + m.PriceLabel + "*)\n" +
		"6️⃣ Get *trip inspiration* (free ideas)\n\n" +
		"Reply with *1, 2, 3, 4, 5 or 6*."
}

func (m Messages) DidNotUnderstand() string {
	return msgDidNotUnderstand + m.Menu()
}

func (m Messages) AskItineraryDetails() string {
	return "Amazing! 🧳\nLet’s get some details so I can prepare a *custom itinerary* (from *" + m.PriceLabel + "*).\n\n" +
		"Please reply in this format:\n" + detailsFormat
}

func (m Messages) AskDraftDetails() string {
	return "Awesome! 🧳\nI can create a *draft itinerary* for you.\n\n" +
		"Before we talk about payment, please share these details:\n" + detailsFormat
}

func (m Messages) Upsell(destination string) string {
	return "Would you like me to build a *detailed day-by-day itinerary* for *" + destination +
		"* from just *" + m.PriceLabel + "*? 🧳✨\n\n" +
		"You’ll get:\n" +
		"• A suggested day-by-day plan\n" +
		"• Tours, hotels, and optional activities linked\n" +
		"• Ability to request edits for up to *" + m.windowLabel() + "*\n\n" +
		"Reply *YES* to learn how it works, or *MENU* to go back."
}

func linkLines(links []string) string {
	lines := make([]string, len(links))
	for i, l := range links {
		lines[i] = "🔗 " + l
	}
	return strings.Join(lines, "\n")
}

func (m Messages) TourLinks(destination string, links []string) string {
	return "Great choice! 🎉 Here are *tour ideas* for *" + destination + "* on Viator:\n\n" +
		linkLines(links) + "\n\n" + m.Upsell(destination)
}

func (m Messages) HotelLinks(destination string, links []string) string {
	return "Nice! 🛌 Here are *stay ideas* for *" + destination + "*:\n\n" +
		linkLines(links) + "\n\n" + m.Upsell(destination)
}

func (m Messages) FlightLinks(route string, links []string) string {
	return "Great! ✈️ Here is a *flight search idea* for *" + route + "*:\n\n" +
		linkLines(links) + "\n\n" + m.Upsell(route)
}

func (m Messages) PaymentLink(details, url string) string {
	return "Thank you! 🙏\nI’ve noted your trip details:\n\n" +
		details +
		"\n\nTo proceed with your *custom itinerary* (from *" + m.PriceLabel + "*), please complete payment using this secure link:\n\n" +
		"💳 *Payment link*: " + url + "\n\n" +
		"Once payment is confirmed, I’ll start creating your detailed itinerary. " +
		"You’ll be able to request edits for up to *" + m.windowLabel() + "* after delivery. 🧳✨\n\n" +
		"Type *MENU* to go back."
}

func (m Messages) Delivered(destination string) string {
	return "🎉 *Payment received successfully!* Thank you.\n\n" +
		"I’ve created your *custom itinerary* for *" + destination + "* as a PDF.\n" +
		"📄 Please open the attached file to view your day-by-day plan.\n\n" +
		"You can reply with *EDIT ITINERARY* within the next *" + m.windowLabel() + "* to request changes."
}

func (m Messages) DeliveredText(destination, itinerary string) string {
	return capText("🎉 *Payment received successfully!* Thank you.\n\n"+
		"Here is your *draft itinerary* for *"+destination+"*:\n\n"+
		itinerary+
		"\n\nYou can reply with *EDIT ITINERARY* to request changes within the next *"+m.windowLabel()+"*, "+
		"or *ITINERARY* any time to view this plan again.", shortenedNotice)
}

func (m Messages) Updated() string {
	return "Here is your *updated itinerary* as a PDF. 📄\n\n" +
		"You can still request more edits within your " + m.windowAdjective() + " window by sending *EDIT ITINERARY* again."
}

func (m Messages) UpdatedText(itinerary string) string {
	return capText("Here is your *updated itinerary*:\n\n"+
		itinerary+
		"\n\nYou can still request more edits within your "+m.windowAdjective()+" window by sending *EDIT ITINERARY* again.",
		shortenedNotice)
}

func (m Messages) EditWindowExpired() string {
	return "Your " + m.windowAdjective() + " edit window for this itinerary has expired. " +
		"To create a new version, please choose *5* from the main menu and request a fresh itinerary."
}

// editWindowNote formats the expiry in the display timezone, or "" when
// there is no expiry.
func (m Messages) editWindowNote(until *time.Time) string {
	if until == nil {
		return ""
	}
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	return "\n\n🕒 *Edit window:* until " + until.In(loc).Format("02/01/2006, 15:04:05") +
		" (" + loc.String() + " time)."
}

func (m Messages) ViewPDF(until *time.Time) string {
	return "Here is your latest itinerary as a PDF. 📄" + m.editWindowNote(until)
}

func (m Messages) ViewText(itinerary string, until *time.Time) string {
	if itinerary == "" {
		itinerary = msgItineraryMissingText
	}
	return "Here is your latest itinerary:\n\n" + capText(itinerary, shortenedViewNotice) + m.editWindowNote(until)
}

// capText cuts s to the WhatsApp text limit and appends notice when cut.
func capText(s, notice string) string {
	if util.RuneLen(s) <= config.TextFallbackMaxChars {
		return s
	}
	return util.Truncate(s, config.TextFallbackMaxChars) + notice
}
