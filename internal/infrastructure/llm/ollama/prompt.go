package ollama

import (
	"encoding/json"
	"fmt"
)

const classificationSystemPrompt = `You are a document classification expert. Analyze the document and classify it.
Return ONLY valid JSON with these exact fields:
{
    "doc_type": "contract|invoice|financial_statement|policy|report|email|unknown",
    "confidence": 0.0-1.0,
    "tags": ["tag1", "tag2"],
    "needs_vlm": true|false,
    "sensitivity": "LOW|MEDIUM|HIGH"
}

Consider:
- contracts need legal review, high sensitivity
- invoices contain financial data, medium-high sensitivity
- financial statements are highly sensitive
- policies are medium sensitivity
- reports may contain confidential info
- needs_vlm = true if document has tables, forms, or scanned images that need visual understanding`

func buildClassificationPrompt(text string) string {
	return fmt.Sprintf(`Classify this document. Provide a brief analysis then the JSON.

Document preview:
%s

Classification:`, clamp(text, 8000))
}

const piiSystemPrompt = `You are a PII detection expert. Identify personally identifiable information (PII) in the text.
Return ONLY valid JSON with this exact structure:
{
    "entities": [
        {"label": "PERSON", "text": "John Doe", "confidence": 0.85},
        {"label": "EMAIL", "text": "john@example.com", "confidence": 0.95},
        {"label": "PHONE", "text": "+1-555-123-4567", "confidence": 0.90},
        {"label": "SSN", "text": "123-45-6789", "confidence": 0.98},
        {"label": "ADDRESS", "text": "123 Main St, City", "confidence": 0.75},
        {"label": "ORGANIZATION", "text": "Acme Corp", "confidence": 0.80},
        {"label": "DATE", "text": "January 15, 2024", "confidence": 0.70},
        {"label": "ACCOUNT", "text": "Account #12345", "confidence": 0.85}
    ]
}

Focus on:
- Names of people (PERSON)
- Email addresses (EMAIL)
- Phone numbers (PHONE)
- Social Security Numbers (SSN)
- Physical addresses (ADDRESS)
- Company names (ORGANIZATION)
- Bank account numbers (ACCOUNT)
- Employee IDs or client IDs

Only return entities you are confident about (confidence > 0.6).`

func buildPIIPrompt(text string) string {
	return fmt.Sprintf(`Detect PII entities in this text:

%s

PII Detection:`, clamp(text, 6000))
}

func buildFindingsSystemPrompt(docType string) string {
	return fmt.Sprintf(`You are a document analysis expert. Analyze the document and identify key findings, risks, trends, and anomalies.
The document type is: %s

Return ONLY valid JSON with this exact structure:
{
    "findings": [
        {
            "category": "LEGAL|FINANCIAL|COMPLIANCE|RISK|ANOMALY|ADVICE|TREND",
            "type": "MISSING_CLAUSE|DUPLICATE_INVOICE|UNUSUAL_PATTERN|STRATEGIC_ADVICE|TREND_ANALYSIS",
            "severity": "LOW|MEDIUM|HIGH|CRITICAL",
            "description": "Clear description of the finding, trend, or advice",
            "evidence_page": 5,
            "evidence_quote": "Exact quote from document highlighting this",
            "confidence": 0.75
        }
    ],
    "risk_score_delta": 5
}

Consider:
- Legal: missing clauses, unusual terms, termination conditions
- Financial: duplicate invoices, unusual amounts, missing details
- Compliance: missing signatures, incomplete forms, regulatory issues
- Risk: high-value transactions, unusual parties, suspicious patterns
- Anomaly: inconsistencies, duplicates, gaps
- Advice/Trends: highlight specific parts of the document, generate actionable advice, and specify clear trends from the data.

Provide actionable insights based on the document type.`, docType)
}

func buildFindingsPrompt(text, docType string, structured map[string]any) string {
	prompt := fmt.Sprintf("Document type: %s\n\nDocument content:\n%s", docType, clamp(text, 10000))
	if len(structured) > 0 {
		if data, err := json.MarshalIndent(structured, "", "  "); err == nil {
			prompt += "\n\nExtracted structured data:\n" + string(data)
		}
	}
	return prompt + "\n\nAnalysis:"
}

const answerSystemPrompt = `You are a helpful AI assistant for a document analysis system.
Answer questions based ONLY on the provided context.
If you cannot find the answer in the context, say so clearly.
Cite your sources by mentioning which document/chunk you used.`

func buildAnswerPrompt(question, context string) string {
	return fmt.Sprintf(`Context:
%s

Question: %s

Answer:`, context, question)
}

func clamp(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
