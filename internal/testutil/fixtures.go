package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to dir/name, creating dir as needed.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// RetailSources writes the three retail datasets into a fresh temp directory
// and returns it: 10 customers, 5 products and 8 sales referencing
// customers 1-3 and products 1-4.
func RetailSources(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()

	var customers strings.Builder
	customers.WriteString("customer_id,name,phone_number,city\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&customers, "%d,Customer %d,0%d55501%02d,City %d\n", i, i, 9, i, i%3)
	}
	WriteFile(t, dir, "CUSTOMERS.csv", customers.String())

	WriteFile(t, dir, "INVENTORY.csv", "product_id,product_name,category,stock_quantity,unit_price\n"+
		"1,Widget,Tools,250,9.99\n"+
		"2,Gadget,Tools,80,19.50\n"+
		"3,Doohickey,Parts,40,4.25\n"+
		"4,Sprocket,Parts,500,1.10\n"+
		"5,Gizmo,Toys,120,14.00\n")

	WriteFile(t, dir, "SALES.csv", "sale_id,customer_id,product_id,quantity,sale_date,total_amount\n"+
		"1,1,1,2,2024-01-05,19.98\n"+
		"2,1,2,1,2024-01-17,19.50\n"+
		"3,2,3,4,2024-02-02,17.00\n"+
		"4,2,4,10,2024-02-11,11.00\n"+
		"5,3,1,1,2024-02-28,9.99\n"+
		"6,3,2,2,2024-03-03,39.00\n"+
		"7,1,4,5,2024-03-15,5.50\n"+
		"8,2,1,3,2024-03-30,29.97\n")

	return dir
}

// RetailSchema is DDL matching RetailSources, emitted child-first to exercise
// dependency ordering.
const RetailSchema = "```sql\n" +
	"CREATE TABLE SALES (\n" +
	"  sale_id INTEGER PRIMARY KEY,\n" +
	"  customer_id INTEGER,\n" +
	"  product_id INTEGER,\n" +
	"  quantity INTEGER,\n" +
	"  sale_date DATE,\n" +
	"  total_amount DECIMAL(10,2),\n" +
	"  FOREIGN KEY (customer_id) REFERENCES CUSTOMERS(customer_id),\n" +
	"  FOREIGN KEY (product_id) REFERENCES INVENTORY(product_id)\n" +
	");\n" +
	"CREATE TABLE CUSTOMERS (\n" +
	"  customer_id INTEGER PRIMARY KEY,\n" +
	"  name VARCHAR(100),\n" +
	"  phone_number VARCHAR(20),\n" +
	"  city VARCHAR(50)\n" +
	");\n" +
	"CREATE TABLE INVENTORY (\n" +
	"  product_id INTEGER PRIMARY KEY,\n" +
	"  product_name VARCHAR(100),\n" +
	"  category VARCHAR(50),\n" +
	"  stock_quantity INTEGER,\n" +
	"  unit_price DECIMAL(10,2)\n" +
	");\n" +
	"```"

// RetailValidation is a validation batch for RetailSources.
const RetailValidation = "SELECT COUNT(*) AS customers FROM CUSTOMERS;\n" +
	"SELECT COUNT(*) AS products FROM INVENTORY;\n" +
	"SELECT COUNT(*) AS sales FROM SALES;\n" +
	"SELECT COUNT(*) AS orphan_customers FROM SALES s LEFT JOIN CUSTOMERS c ON s.customer_id = c.customer_id WHERE c.customer_id IS NULL;\n" +
	"SELECT COUNT(*) AS orphan_products FROM SALES s LEFT JOIN INVENTORY i ON s.product_id = i.product_id WHERE i.product_id IS NULL;\n" +
	"SELECT SUM(total_amount) AS total_sales FROM SALES;"
