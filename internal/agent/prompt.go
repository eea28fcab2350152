package agent

import (
	"fmt"

	"codeberg.org/guideelbac/server/internal/llm"
)

const systemPromptTemplate = `Tu es Guide El Bac, un assistant d'orientation pour les bacheliers tunisiens.
Tu aides à comprendre les scores du bac, le calcul de la formule globale (FG), les filières universitaires et les démarches d'orientation.

Règles :
- Réponds en français, de façon claire, bienveillante et structurée.
- Appuie-toi en priorité sur le contexte fourni ; s'il ne contient pas la réponse, dis-le et donne des conseils généraux prudents.
- N'invente jamais de scores, de seuils ou de dates.
- Encourage l'élève à vérifier les informations officielles sur le site de l'orientation universitaire.

Contexte disponible :
%s`

func buildSystemPrompt(contextText string) string {
	return fmt.Sprintf(systemPromptTemplate, contextText)
}

// builds the generation request: persona with context, then the raw question
func buildRequest(question, contextText string) llm.TextGenerationRequest {
	return llm.TextGenerationRequest{
		SystemPrompt: buildSystemPrompt(contextText),
		Messages: []llm.Message{
			{Role: "user", Content: question},
		},
	}
}
