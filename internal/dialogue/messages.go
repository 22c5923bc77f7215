package dialogue

import "fmt"

// Canned replies in both languages. Dutch is the default voice of the bot;
// English mirrors it for customers the language detector flags.

func msgEmpty(lang string) string {
	if lang == "en" {
		return "Hey, I don't see anything! Type your question and I'll gladly help. 😊"
	}
	return "Hé, ik zie niks! Typ je vraag en ik help je graag. 😊"
}

func msgTooLong(lang string) string {
	if lang == "en" {
		return "Wow, that's quite a story! Could you shorten your question a bit (max 1000 characters)?"
	}
	return "Oei, dat is een heel verhaal! Kun je je vraag iets korter maken (max 1000 tekens)?"
}

func msgAskName(lang string) string {
	if lang == "en" {
		return "I'll connect you with our team! What's your name?"
	}
	return "Ik verbind je met ons team! Wat is je naam?"
}

func msgMeet(lang, name string) string {
	if lang == "en" {
		return fmt.Sprintf("Nice to meet you, %s! What's your email address? Then our team can get back to you.", name)
	}
	return fmt.Sprintf("Leuk je te ontmoeten, %s! Wat is je e-mailadres? Dan kan ons team contact met je opnemen.", name)
}

func msgDeclined(lang string) string {
	if lang == "en" {
		return "No problem! 👍 Anything else I can help you with?"
	}
	return "Geen probleem! 👍 Kan ik je ergens anders mee helpen?"
}

func msgInvalidEmail(lang string) string {
	if lang == "en" {
		return "Hmm, that doesn't look like a valid email address. Could you try again? (e.g. name@example.com)"
	}
	return "Hmm, dat lijkt geen geldig e-mailadres. Kun je het nog eens proberen? (bijv. naam@voorbeeld.nl)"
}

func msgEscalated(lang, email string) string {
	if lang == "en" {
		return fmt.Sprintf("Done! Our team will pick this up and email you at %s. 📬", email)
	}
	return fmt.Sprintf("Top! Ons team gaat ermee aan de slag en mailt je op %s. 📬", email)
}

func msgEscalationFailed(lang string) string {
	if lang == "en" {
		return "Sorry, I couldn't forward your question just now. Please try again later or email us directly!"
	}
	return "Het lukte helaas niet om je vraag door te sturen. Probeer het later nog eens of mail ons direct!"
}

func msgConfirmOrder(lang, orderID string) string {
	if lang == "en" {
		return fmt.Sprintf("Would you like the status of shipment **#%s**? (Answer 'yes' or 'no')", orderID)
	}
	return fmt.Sprintf("Wil je de status opvragen van zending **#%s**? (Antwoord met 'ja' of 'nee')", orderID)
}

func msgOrderDeclined(lang string) string {
	if lang == "en" {
		return "Okay, no problem!"
	}
	return "Oké, geen probleem!"
}

func msgShippingFailed(lang, orderID string) string {
	if lang == "en" {
		return fmt.Sprintf("I can't fetch the status of shipment **#%s** right now. Please try again later!", orderID)
	}
	return fmt.Sprintf("Ik kan de status van zending **#%s** op dit moment niet ophalen. Probeer het later nog eens!", orderID)
}
