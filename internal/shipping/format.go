package shipping

import "fmt"

// FormatStatus renders a status as a chat reply in the given language
// ("nl" default, "en" supported).
func FormatStatus(s Status, lang string) string {
	if lang == "en" {
		return formatEN(s)
	}
	return formatNL(s)
}

func formatNL(s Status) string {
	switch s.State {
	case StatusDelivered:
		return fmt.Sprintf("Goed nieuws! Je zending **#%s** is bezorgd. 📦", s.OrderID)
	case StatusInTransit:
		msg := fmt.Sprintf("Je zending **#%s** is onderweg!", s.OrderID)
		if s.ETA != "" {
			msg += fmt.Sprintf(" Verwachte bezorging: %s.", s.ETA)
		}
		if s.TrackingURL != "" {
			msg += fmt.Sprintf(" Volg je pakket hier: %s", s.TrackingURL)
		}
		return msg
	case StatusAtDepot:
		msg := fmt.Sprintf("Je zending **#%s** ligt bij het depot", s.OrderID)
		if s.Note != "" {
			msg += fmt.Sprintf(" (%s)", s.Note)
		}
		msg += "."
		if s.TrackingURL != "" {
			msg += fmt.Sprintf(" Volg je pakket hier: %s", s.TrackingURL)
		}
		return msg
	default:
		return fmt.Sprintf("Ik kan de status van zending **#%s** op dit moment niet ophalen. Probeer het later nog eens!", s.OrderID)
	}
}

func formatEN(s Status) string {
	switch s.State {
	case StatusDelivered:
		return fmt.Sprintf("Good news! Your shipment **#%s** has been delivered. 📦", s.OrderID)
	case StatusInTransit:
		msg := fmt.Sprintf("Your shipment **#%s** is on its way!", s.OrderID)
		if s.ETA != "" {
			msg += fmt.Sprintf(" Expected delivery: %s.", s.ETA)
		}
		if s.TrackingURL != "" {
			msg += fmt.Sprintf(" Track it here: %s", s.TrackingURL)
		}
		return msg
	case StatusAtDepot:
		msg := fmt.Sprintf("Your shipment **#%s** is at the depot", s.OrderID)
		if s.Note != "" {
			msg += fmt.Sprintf(" (%s)", s.Note)
		}
		msg += "."
		if s.TrackingURL != "" {
			msg += fmt.Sprintf(" Track it here: %s", s.TrackingURL)
		}
		return msg
	default:
		return fmt.Sprintf("I can't fetch the status of shipment **#%s** right now. Please try again later!", s.OrderID)
	}
}
