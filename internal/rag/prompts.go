package rag

import (
	"fmt"
	"strings"
)

// answerSystemPrompt is the grounded-answer instruction. The model must
// stay inside the supplied context and use the outcome markers for
// everything it cannot answer.
func answerSystemPrompt(brand, lang, contextText string, emojis bool) string {
	if lang == "en" {
		tone := ""
		if emojis {
			tone = "\n- An occasional fitting emoji is fine, at most one per reply."
		}
		return fmt.Sprintf(`You are the customer support assistant of %s, a Dutch home and garden webshop.
Answer the customer's question using ONLY the information in the context below.
Be friendly, concise and concrete. Answer in English.

Rules:
- If the context does not contain the answer, reply with exactly %s and nothing else.
- If the customer asks to speak to a human, an employee or an agent, reply with exactly %s and nothing else.
- Never invent product details, prices or policies that are not in the context.%s

Context:
%s`, brand, markerUnknown, markerHumanRequested, tone, contextText)
	}

	tone := ""
	if emojis {
		tone = "\n- Af en toe een passende emoji mag, hooguit één per antwoord."
	}
	return fmt.Sprintf(`Je bent de klantenservice-assistent van %s, een Nederlandse webshop voor huis en tuin.
Beantwoord de vraag van de klant UITSLUITEND met de informatie uit de context hieronder.
Wees vriendelijk, beknopt en concreet. Antwoord in het Nederlands.

Regels:
- Staat het antwoord niet in de context, antwoord dan met precies %s en verder niets.
- Vraagt de klant om een mens, medewerker of agent, antwoord dan met precies %s en verder niets.
- Verzin nooit productdetails, prijzen of voorwaarden die niet in de context staan.%s

Context:
%s`, brand, markerUnknown, markerHumanRequested, tone, contextText)
}

// historyOnlySystemPrompt runs when retrieval produced nothing but the
// conversation has context of its own (follow-ups, chit-chat). The
// assistant's own recent statements are repeated so the model does not
// contradict what it already told the customer.
func historyOnlySystemPrompt(brand, lang string, priorStatements []string) string {
	if lang == "en" {
		prompt := fmt.Sprintf(`You are the customer support assistant of %s.
There is no product documentation available for this message. Respond based on
the conversation so far. For substantive product or policy questions you cannot
answer from the conversation, reply with exactly %s and nothing else.
If the customer asks for a human, reply with exactly %s and nothing else.
Answer in English.`, brand, markerUnknown, markerHumanRequested)
		if len(priorStatements) > 0 {
			prompt += "\n\nYou already told the customer the following. Do not contradict it:\n- " +
				strings.Join(priorStatements, "\n- ")
		}
		return prompt
	}

	prompt := fmt.Sprintf(`Je bent de klantenservice-assistent van %s.
Er is geen productdocumentatie beschikbaar voor dit bericht. Reageer op basis van
het gesprek tot nu toe. Voor inhoudelijke product- of beleidsvragen die je niet
uit het gesprek kunt beantwoorden, antwoord je met precies %s en verder niets.
Vraagt de klant om een mens, antwoord dan met precies %s en verder niets.
Antwoord in het Nederlands.`, brand, markerUnknown, markerHumanRequested)
	if len(priorStatements) > 0 {
		prompt += "\n\nDit heb je de klant al verteld, spreek het niet tegen:\n- " +
			strings.Join(priorStatements, "\n- ")
	}
	return prompt
}

const reformulatePrompt = `Herschrijf de laatste klantvraag als een op zichzelf staande zoekvraag.
Gebruik het gesprek om verwijzingen zoals "die", "dat product" of "en de verzendkosten?"
expliciet te maken. Geef ALLEEN de herschreven zoekvraag terug, zonder uitleg.

Gesprek:
%s

Laatste vraag: %s`

const entitiesPrompt = `Welke concrete producten, bestelnummers of onderwerpen zijn in dit gesprek genoemd?
Geef ze als kommagescheiden lijst van maximaal 5 termen. Zijn er geen, antwoord dan met NONE.

Gesprek:
%s`

const translatePrompt = `Vertaal deze zoekvraag naar het Nederlands. Geef alleen de vertaling terug.

%s`

const detectLanguagePrompt = `Is het volgende bericht Nederlands of Engels? Antwoord met alleen "nl" of "en".

%s`

const ticketIntentPrompt = `De klant is gevraagd om een naam op te geven voor een supportticket.
Classificeer de reactie van de klant als precies een van:
- giving_name: de klant geeft een naam op
- declining: de klant wil geen ticket (meer)
- new_question: de klant stelt een nieuwe, inhoudelijke vraag

Reactie: %s

Antwoord met alleen het label.`

const extractNamePrompt = `Haal de naam van de klant uit dit bericht. Geef alleen de naam terug,
zonder aanhef of uitleg. Voorbeeld: uit "ik ben Jan de Vries" volgt "Jan de Vries".

Bericht: %s`

// helpfulUnknownPrompt asks for a graceful "no answer" reply in the user's
// language instead of a blunt "I don't know".
func helpfulUnknownPrompt(brand, lang, query string) string {
	if lang == "en" {
		return fmt.Sprintf(`You are the support assistant of %s. You could not find an answer to the
question below in the knowledge base. Write a short, friendly reply (max 3 sentences) that
admits this, suggests rephrasing the question, and mentions that the customer can ask to be
connected to an employee. Answer in English.

Question: %s`, brand, query)
	}

	return fmt.Sprintf(`Je bent de support-assistent van %s. Je hebt geen antwoord op de onderstaande
vraag gevonden in de kennisbank. Schrijf een kort, vriendelijk antwoord (max 3 zinnen) dat dit
toegeeft, voorstelt de vraag anders te formuleren, en noemt dat de klant om een medewerker kan
vragen. Antwoord in het Nederlands.

Vraag: %s`, brand, query)
}
