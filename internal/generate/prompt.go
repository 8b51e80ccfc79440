package generate

import (
	"fmt"
	"strings"
)

// SystemPrompt steers the model for both generation and repair turns.
const SystemPrompt = "You are a helpful assistant. Keep your answers short and succinct."

// sampleQueries gives the model a worked example of the expected output
// shape, including the SQL marker convention.
const sampleQueries = `
Example SQL Queries:
1. Query: What was the total donation amount for the New Year Kickstart campaign?

    select sum(d.donation_amount) as total_donation_amount
    from donations d
    left join campaigns c on d.campaign_id = c.campaign_id
    where lower(campaign_name) like 'new year kickstart%'
    group by c.campaign_id, c.campaign_name

   Expected Result:
   | total_donation_amount |
   |-----------------------|
   | 12425                 |
`

const instructionRules = `Read database metadata inside the <database_metadata></database_metadata> tags to do the following:
1. Create a syntactically correct SQL query to answer the question.
2. Never query for all the columns from a specific table, only ask for a few relevant columns given the question.
3. Pay attention to use only the column names that you can see in the schema description.
4. Be careful to not query for columns that do not exist.
5. When using WHERE clauses, be careful not to search for values that do not exist in the column.
6. When using WHERE clauses, add the LOWER() function and search for all terms in lowercase.
7. If you are writing CTEs then include all the required columns.
8. While concatenating a non string column, make sure cast the column to string.
9. For date columns comparing to string, please cast the string input.
10. Return the sql query inside the <SQL></SQL> tags.

Refer to the example queries in the <sample_queries></sample_queries> tags for example output.`

// BuildInstructionPrompt assembles the first generation prompt for a
// question against the supplied schema description.
func BuildInstructionPrompt(metadata string, question string) string {
	var b strings.Builder
	b.WriteString(instructionRules)
	b.WriteString("\n\n<database_metadata>\n")
	b.WriteString(metadata)
	b.WriteString("\n</database_metadata>\n<sample_queries>")
	b.WriteString(sampleQueries)
	b.WriteString("</sample_queries>\n<query> ")
	b.WriteString(question)
	b.WriteString(" </query>")
	return b.String()
}

// BuildCorrectionPrompt asks the model to repair a candidate that failed the
// dry-run check, carrying both the reported error and the failed SQL.
func BuildCorrectionPrompt(reason string, failedSQL string) string {
	return fmt.Sprintf(`This is the syntax error: %s.
To correct this, please generate an alternative SQL query which will correct the syntax error.
The updated query should take care of all the syntax issues encountered.
Follow the instructions mentioned above to remediate the error.
Update the below SQL query to resolve the issue:
%s
Make sure the updated SQL query aligns with the requirements provided in the initial question.`, reason, failedSQL)
}
