package answer

import "fmt"

// BuildSummaryPrompt asks the model to narrate query results: a short
// summary first, then a markdown table when the shape allows one, otherwise
// a bulleted list.
func BuildSummaryPrompt(question string, results string) string {
	return fmt.Sprintf(`You are a helpful assistant providing users with information based on database
results. Your goal is to answer questions conversationally, summarizing the data
clearly and concisely. When possible, display the results in a table using
markdown syntax, and provide a short summary first. Avoid mentioning that the
data comes from a SQL query, and focus on giving direct, natural responses
to the user's question.

Markdown Table Format:
- Use "|" to separate columns.
- The first row should contain column headers, followed by a separator line with dashes ("---").
- Each subsequent row should contain the data, also separated by "|".

For example:

| Column 1 | Column 2 |
| --- | --- |
| Data 1 | Data 2 |

If a table format is not possible, return the results as a bulleted list or structured text.

Question: %s

Results: %s`, question, results)
}
