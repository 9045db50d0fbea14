package suggestion

import (
	"fmt"
	"strings"
)

// systemInstruction frames every provider as the travel agency's assistant
const systemInstruction = `Eres un asistente de la agencia de viajes Orbitravel. Redactas el contenido de comprobantes de abono para clientes: qué incluye el viaje y los detalles relevantes para el pasajero. Respondes siempre en español, con frases breves y concretas.`

// tripPromptTemplate is the shared prompt used by all LLM providers
const tripPromptTemplate = `Un cliente abonó un viaje con la siguiente descripción:

Descripción del viaje: %s
Mes del viaje: %s

Genera una sugerencia para el comprobante de abono:

1. **inclusions**: un resumen de una o dos líneas con lo que normalmente incluye este viaje (por ejemplo: aéreos, traslados, alojamiento, régimen de comidas, excursiones).
2. **details**: una lista de 3 a 6 detalles útiles para el pasajero, considerando la temporada del mes indicado (clima, documentación, equipaje, recomendaciones).

Devuelve SOLO JSON válido con este formato exacto:
{
  "inclusions": "texto",
  "details": ["detalle 1", "detalle 2"]
}

Importante:
- "details" debe ser un arreglo de textos, nunca un texto único
- No incluyas texto antes ni después del JSON
- No uses bloques de código markdown`

// buildPrompt renders the user prompt for a trip
func buildPrompt(description, month string) string {
	month = strings.TrimSpace(month)
	if month == "" {
		month = "no especificado"
	}
	return fmt.Sprintf(tripPromptTemplate, strings.TrimSpace(description), month)
}
