// Package stdlib - math module
package stdlib

// mathModule maps Python's math module onto the JS Math object
var mathModule = Module{
	Object: "Math",
	Members: map[string]string{
		"pi":    "Math.PI",
		"e":     "Math.E",
		"tau":   "(2 * Math.PI)",
		"inf":   "Infinity",
		"nan":   "NaN",
		"fabs":  "Math.abs",
		"floor": "Math.floor",
		"ceil":  "Math.ceil",
		"trunc": "Math.trunc",
		"sqrt":  "Math.sqrt",
		"pow":   "Math.pow",
		"exp":   "Math.exp",
		"log":   "Math.log",
		"log2":  "Math.log2",
		"log10": "Math.log10",
		"sin":   "Math.sin",
		"cos":   "Math.cos",
		"tan":   "Math.tan",
		"asin":  "Math.asin",
		"acos":  "Math.acos",
		"atan":  "Math.atan",
		"atan2": "Math.atan2",
		"hypot": "Math.hypot",
		"isnan": "Number.isNaN",
		"isinf": "((x) => x === Infinity || x === -Infinity)",
		"gcd":   "((a, b) => { while (b) { [a, b] = [b, a % b]; } return Math.abs(a); })",
	},
}
