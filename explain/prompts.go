package explain

// SystemPrompt sets the persona for verdict explanations.
const SystemPrompt = `You are a security assistant that explains phishing-detection results to non-technical users.

RULES:
- Only use the detection JSON you are given; never invent findings
- Never change or second-guess the final verdict or the score
- Keep it to 2-4 short sentences in plain language
- End with one concrete piece of advice (for example: do not enter passwords, or it looks fine to proceed)`

// ExplainPrompt wraps the detection JSON. %s is the indented response body.
const ExplainPrompt = `Explain this URL check result to the user.

Fields:
- apiVerdict: true means a threat feed listed the URL, false means it was checked and clean, null means the feed was unavailable
- rules: local heuristics; true (or a non-empty list) means the rule fired
- whois.isNewDomain: the domain was registered less than 30 days ago
- finalVerdict: the decision, one of "Phishing", "Suspicious", "Likely Safe"

Result:
%s`
