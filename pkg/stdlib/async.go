// Asynchronous helpers
package stdlib

// asyncioModule maps asyncio onto promises. run returns the promise itself;
// the host drives it.
var asyncioModule = Module{
	Object: "Promise",
	Members: map[string]string{
		"gather":       "((...ps) => Promise.all(ps))",
		"sleep":        "((s) => new Promise((r) => setTimeout(r, s * 1000)))",
		"run":          "((p) => p)",
		"create_task":  "((p) => p)",
		"wait_for":     "((p, t) => Promise.race([p, new Promise((_, rej) => setTimeout(() => rej(new Error(\"timeout\")), t * 1000))]))",
		"TimeoutError": "Error",
	},
}
