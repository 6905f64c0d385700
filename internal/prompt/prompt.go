// Package prompt holds the fixed prompt template expected by the sqlcoder
// model family and the example schema used when a request carries no
// metadata. The template must not drift: the model was trained against this
// exact section layout, including the opening ```sql fence at the end.
package prompt

import "strings"

const questionPlaceholder = "{user_question}"
const metadataPlaceholder = "{table_metadata_string}"

const template = "### Task\n" +
	"Generate a SQL query to answer the following question:\n" +
	"`{user_question}`\n" +
	"\n" +
	"### Database Schema\n" +
	"The query will run on a database with the following schema:\n" +
	"{table_metadata_string}\n" +
	"\n" +
	"### SQL\n" +
	"Follow these steps to create the SQL Query:\n" +
	"1. Only use the columns and tables present in the database schema\n" +
	"2. Use table aliases to prevent ambiguity when doing joins. For example, `SELECT table1.col1, table2.col1 FROM table1 JOIN table2 ON table1.id = table2.id`.\n" +
	"\n" +
	"Given the database schema, here is the SQL query that answers `{user_question}`:\n" +
	"```sql\n"

// DefaultMetadata is the example retail schema served when a request omits
// table metadata, matching the model card's reference schema.
const DefaultMetadata = `CREATE TABLE products (
  product_id INTEGER PRIMARY KEY, -- Unique ID for each product
  name VARCHAR(50), -- Name of the product
  price DECIMAL(10,2), -- Price of each unit of the product
  quantity INTEGER  -- Current quantity in stock
);

CREATE TABLE customers (
   customer_id INTEGER PRIMARY KEY, -- Unique ID for each customer
   name VARCHAR(50), -- Name of the customer
   address VARCHAR(100) -- Mailing address of the customer
);

CREATE TABLE salespeople (
  salesperson_id INTEGER PRIMARY KEY, -- Unique ID for each salesperson
  name VARCHAR(50), -- Name of the salesperson
  region VARCHAR(50) -- Geographic sales region
);

CREATE TABLE sales (
  sale_id INTEGER PRIMARY KEY, -- Unique ID for each sale
  product_id INTEGER, -- ID of product sold
  customer_id INTEGER,  -- ID of customer who made purchase
  salesperson_id INTEGER, -- ID of salesperson who made the sale
  sale_date DATE, -- Date the sale occurred
  quantity INTEGER -- Quantity of product sold
);

CREATE TABLE product_suppliers (
  supplier_id INTEGER PRIMARY KEY, -- Unique ID for each supplier
  product_id INTEGER, -- Product ID supplied
  supply_price DECIMAL(10,2) -- Unit price charged by supplier
);

-- sales.product_id can be joined with products.product_id
-- sales.customer_id can be joined with customers.customer_id
-- sales.salesperson_id can be joined with salespeople.salesperson_id
-- product_suppliers.product_id can be joined with products.product_id
`

// Render fills the template with the question and table metadata. Empty
// metadata selects DefaultMetadata.
func Render(question, metadata string) string {
	if strings.TrimSpace(metadata) == "" {
		metadata = DefaultMetadata
	}
	r := strings.NewReplacer(
		questionPlaceholder, question,
		metadataPlaceholder, metadata,
	)
	return r.Replace(template)
}

// TrimFence strips markdown code fences from generated text for display.
// The prompt opens a ```sql block, so completions typically end with a
// closing fence; some models emit a full fenced block instead.
func TrimFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
