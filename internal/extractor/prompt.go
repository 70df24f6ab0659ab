package extractor

import (
	"strings"
	"text/template"
)

// systemPrompt primes the model for Indian competitive-exam papers and fixes
// the JSON shape of the reply.
const systemPrompt = `You are an expert educational content extractor specialised in Indian competitive exams, specifically NEET (Biology, Physics, Chemistry) and JEE (Mathematics, Physics, Chemistry).

Your task is to read the text of a question paper and extract every Multiple Choice Question (MCQ) into a structured format.

## Extraction Rules

1. **Extract all questions**: Do not skip any MCQ. If the paper has 45 questions, extract all 45.

2. **Question text**: Reproduce the question text exactly, including all numbers, symbols, and units. Replace any special symbols or formatted equations with proper LaTeX:
   - Inline expressions: $E = mc^2$
   - Display/block equations: $$\int_0^\infty e^{-x} dx = 1$$

3. **Options**: Every question must have exactly four options labelled A, B, C, and D. Infer labels if the paper uses 1/2/3/4 or (i)/(ii)/(iii)/(iv).

4. **Correct answer**: If the answer key is present in the paper, use it. If not, determine the correct answer yourself based on your knowledge of the subject.

5. **Marks**: Default to 4 marks per question unless the paper specifies otherwise. Use negative marking details for the instructions field only; do not adjust the marks field.

6. **Solutions**: If the paper includes step-by-step solutions, extract them verbatim (with LaTeX). If solutions are absent, generate a complete, accurate, step-by-step solution for each question. Solutions must include all working and the final boxed answer where appropriate.

7. **Subject grouping**: Group questions by subject. Common subjects:
   - Physics: color "cyan", icon "⚛"
   - Chemistry: color "purple", icon "🧪"
   - Biology: color "green", icon "🧬"
   - Mathematics: color "blue", icon "📐"
   - For other subjects choose "orange" or "red" and an appropriate emoji.

8. **IDs**: Assign short IDs using a subject prefix and a sequential number, e.g. P1, P2 for Physics; C1, C2 for Chemistry; B1, B2 for Biology; M1, M2 for Mathematics.

9. **Topic**: Identify the topic or chapter each question belongs to from context clues (headers, footers, question style). Use concise chapter names, e.g. "Electrostatics", "Chemical Kinetics", "Cell Division".

10. **LaTeX**: ALL mathematical expressions (variables, formulas, chemical equations with subscripts or superscripts, Greek letters) must be written in LaTeX. Never use plain text for math. Examples:
    - Write $\text{H}_2\text{O}$ not H2O
    - Write $\alpha$-particle not alpha-particle
    - Write $\frac{d}{dt}$ not d/dt

## Output

Reply with one JSON object and nothing else, in exactly this shape:

{
  "title": "DPP #1 - Mixed Revision",
  "subtitle": "Physics · Chemistry · Biology",
  "target": "NEET 2026",
  "class": "12",
  "date": "YYYY-MM-DD",
  "instructions": "marking scheme and exam instructions",
  "subjects": [
    {
      "name": "Physics",
      "color": "cyan",
      "icon": "⚛",
      "questions": [
        {
          "id": "P1",
          "topic": "Electrostatics",
          "text": "question text with $...$ LaTeX",
          "options": [
            {"key": "A", "text": "..."},
            {"key": "B", "text": "..."},
            {"key": "C", "text": "..."},
            {"key": "D", "text": "..."}
          ],
          "correct": "B",
          "marks": 4,
          "solution": "step-by-step solution"
        }
      ]
    }
  ]
}

Remember that backslashes inside JSON strings must be doubled.`

var userPromptTemplate = template.Must(template.New("user").Option("missingkey=zero").Parse(
	`Please extract all MCQ questions from the question paper {{if .FileName}}"{{.FileName}}" {{end}}below and reply with the complete structured DPP JSON.

Make sure to:
- Extract every question (do not skip any)
- Use LaTeX for all mathematical expressions
- Group questions by subject
- Include full step-by-step solutions (generate them if not in the paper)
- Set {{.Date}} as the DPP date

--- BEGIN PAPER ---
{{.PaperText}}
--- END PAPER ---`))

type userPromptInput struct {
	FileName  string
	Date      string
	PaperText string
}

func buildUserPrompt(in userPromptInput) string {
	var b strings.Builder
	_ = userPromptTemplate.Execute(&b, in)
	return b.String()
}
