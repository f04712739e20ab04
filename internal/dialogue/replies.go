package dialogue

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canned replies for every path that must answer without an LLM: degraded
// upstreams, escalations, empty input, and booking flow prompts. Each comes
// in English and Spanish; English is the fallback for any other tag.

type cannedReply struct {
	en string
	es string
}

func (r cannedReply) in(tag language.Tag) string {
	if tag == language.Spanish {
		return r.es
	}
	return r.en
}

var (
	replyDegraded = cannedReply{
		en: "I'm having trouble looking that up right now. Please try again in a few minutes, or call our service department and they'll be happy to help.",
		es: "Estoy teniendo problemas para consultar eso en este momento. Por favor intente de nuevo en unos minutos, o llame a nuestro departamento de servicio y con gusto le ayudarán.",
	}
	replyEscalated = cannedReply{
		en: "I'm sorry for the trouble. I've alerted a service advisor and a member of our team will reach out to you shortly.",
		es: "Lamento las molestias. He alertado a un asesor de servicio y un miembro de nuestro equipo se comunicará con usted en breve.",
	}
	replyEmptyInput = cannedReply{
		en: "I didn't catch that. How can I help you with your vehicle today?",
		es: "No entendí eso. ¿Cómo puedo ayudarle con su vehículo hoy?",
	}
	replyNoAnswer = cannedReply{
		en: "I couldn't find that in the owner's manual for your vehicle. A service advisor can help with this question — would you like me to have someone reach out?",
		es: "No encontré eso en el manual del propietario de su vehículo. Un asesor de servicio puede ayudarle con esta pregunta. ¿Desea que alguien se comunique con usted?",
	}
	replyGeneral = cannedReply{
		en: "Hi! I can answer questions from your vehicle's owner's manual or help you schedule a service appointment. What can I do for you?",
		es: "¡Hola! Puedo responder preguntas del manual del propietario de su vehículo o ayudarle a programar una cita de servicio. ¿En qué puedo ayudarle?",
	}
	replyBookingCancelled = cannedReply{
		en: "No problem, I've cancelled that request. Let me know if there's anything else I can help with.",
		es: "No hay problema, he cancelado esa solicitud. Avíseme si hay algo más en lo que pueda ayudarle.",
	}
)

var slotPrompts = map[string]cannedReply{
	"name": {
		en: "Can I get your name for the appointment?",
		es: "¿Me puede dar su nombre para la cita?",
	},
	"phone": {
		en: "What's the best phone number to reach you?",
		es: "¿Cuál es el mejor número de teléfono para contactarle?",
	},
	"vehicle": {
		en: "Which vehicle is this for?",
		es: "¿Para qué vehículo es esto?",
	},
	"service_type": {
		en: "What service does your vehicle need?",
		es: "¿Qué servicio necesita su vehículo?",
	},
	"preferred_date": {
		en: "What day works best for you?",
		es: "¿Qué día le conviene más?",
	},
	"preferred_time": {
		en: "What time of day works best?",
		es: "¿A qué hora le conviene más?",
	},
}

func promptForSlot(slot string, tag language.Tag) string {
	if p, ok := slotPrompts[slot]; ok {
		return p.in(tag)
	}
	return replyGeneral.in(tag)
}

// displayName renders a stored customer name ("JOHN DOE") the way a person
// would write it in a message.
func displayName(name string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(name)))
}

// returningCustomerGreeting welcomes a matched customer by name, mentioning
// the vehicle suggested from their history when one was prefilled.
func returningCustomerGreeting(name, vehicle string, tag language.Tag) string {
	if tag == language.Spanish {
		if vehicle != "" {
			return fmt.Sprintf("¡Qué gusto verle de nuevo, %s! La última vez nos trajo su %s, así que lo anoté. ", name, vehicle)
		}
		return fmt.Sprintf("¡Qué gusto verle de nuevo, %s! ", name)
	}
	if vehicle != "" {
		return fmt.Sprintf("Welcome back, %s! Last time you brought in your %s, so I've noted that one. ", name, vehicle)
	}
	return fmt.Sprintf("Welcome back, %s! ", name)
}

// vehiclePrompt asks which supported model the conversation is about.
func vehiclePrompt(tag language.Tag) string {
	if tag == language.Spanish {
		return fmt.Sprintf("¿Sobre qué vehículo me pregunta? Atendemos: %s.", vehicleChoices())
	}
	return fmt.Sprintf("Which vehicle is your question about? We cover: %s.", vehicleChoices())
}

// confirmationPrompt summarizes a complete booking draft for a yes/no check.
func confirmationPrompt(summary string, tag language.Tag) string {
	if tag == language.Spanish {
		return fmt.Sprintf("Para confirmar su cita:\n%s\n¿Es correcto? (sí/no)", summary)
	}
	return fmt.Sprintf("Just to confirm your appointment:\n%s\nIs that right? (yes/no)", summary)
}

// bookingSubmittedReply acknowledges a persisted booking request.
func bookingSubmittedReply(name string, tag language.Tag) string {
	if tag == language.Spanish {
		return fmt.Sprintf("¡Listo, %s! Su solicitud de cita fue enviada. Un asesor de servicio la confirmará pronto.", name)
	}
	return fmt.Sprintf("All set, %s! Your appointment request has been submitted. A service advisor will confirm it shortly.", name)
}
