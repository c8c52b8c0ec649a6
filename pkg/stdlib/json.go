// JSON module
package stdlib

// jsonModule maps Python's json module onto the JS JSON object
var jsonModule = Module{
	Object: "JSON",
	Members: map[string]string{
		"dumps": "((v, indent) => JSON.stringify(v, null, indent))",
		"loads": "JSON.parse",
	},
}
