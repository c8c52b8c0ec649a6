// Package stdlib - Python builtins and standard modules mapped onto JavaScript
// Design: Pure data. The validator asks which names exist, the generator
// asks how to lower them; neither mutates the tables.
package stdlib

import "sort"

// BuiltinKind classifies a builtin name
type BuiltinKind int

const (
	Function BuiltinKind = iota
	Class
	Exception
	Constant
)

// Builtin describes how a builtin name is lowered. Exactly one of JS and
// Helper is set: JS is an expression emitted in place of the name, Helper
// names a prelude function.
type Builtin struct {
	Kind   BuiltinKind
	JS     string
	Helper string
}

var builtins = map[string]Builtin{
	// I/O and conversions
	"print": {Kind: Function, JS: "console.log"},
	"str":   {Kind: Function, JS: "String"},
	"int":   {Kind: Function, Helper: "__pyx_int"},
	"float": {Kind: Function, JS: "Number"},
	"bool":  {Kind: Function, Helper: "__pyx_bool"},
	"repr":  {Kind: Function, JS: "JSON.stringify"},
	"chr":   {Kind: Function, JS: "String.fromCodePoint"},
	"ord":   {Kind: Function, Helper: "__pyx_ord"},
	"hex":   {Kind: Function, Helper: "__pyx_hex"},
	"bin":   {Kind: Function, Helper: "__pyx_bin"},
	"oct":   {Kind: Function, Helper: "__pyx_oct"},

	// Collections
	"len":       {Kind: Function, Helper: "__pyx_len"},
	"range":     {Kind: Function, Helper: "__pyx_range"},
	"list":      {Kind: Function, Helper: "__pyx_list"},
	"tuple":     {Kind: Function, Helper: "__pyx_list"},
	"dict":      {Kind: Function, Helper: "__pyx_dict"},
	"set":       {Kind: Function, Helper: "__pyx_set"},
	"sorted":    {Kind: Function, Helper: "__pyx_sorted"},
	"reversed":  {Kind: Function, Helper: "__pyx_reversed"},
	"enumerate": {Kind: Function, Helper: "__pyx_enumerate"},
	"zip":       {Kind: Function, Helper: "__pyx_zip"},
	"map":       {Kind: Function, Helper: "__pyx_map"},
	"filter":    {Kind: Function, Helper: "__pyx_filter"},
	"iter":      {Kind: Function, Helper: "__pyx_iter"},
	"next":      {Kind: Function, Helper: "__pyx_next"},

	// Numbers
	"abs":    {Kind: Function, JS: "Math.abs"},
	"round":  {Kind: Function, JS: "Math.round"},
	"pow":    {Kind: Function, JS: "Math.pow"},
	"min":    {Kind: Function, Helper: "__pyx_min"},
	"max":    {Kind: Function, Helper: "__pyx_max"},
	"sum":    {Kind: Function, Helper: "__pyx_sum"},
	"divmod": {Kind: Function, Helper: "__pyx_divmod"},
	"any":    {Kind: Function, Helper: "__pyx_any"},
	"all":    {Kind: Function, Helper: "__pyx_all"},

	// Objects
	"isinstance": {Kind: Function, Helper: "__pyx_isinstance"},
	"hasattr":    {Kind: Function, Helper: "__pyx_hasattr"},
	"getattr":    {Kind: Function, Helper: "__pyx_getattr"},
	"setattr":    {Kind: Function, Helper: "__pyx_setattr"},
	"callable":   {Kind: Function, Helper: "__pyx_callable"},
	"super":      {Kind: Function, JS: "super"},
	"object":     {Kind: Class, JS: "Object"},

	// Decorators understood by class lowering
	"staticmethod": {Kind: Function, JS: "staticmethod"},
	"property":     {Kind: Function, JS: "property"},
	"classmethod":  {Kind: Function, JS: "classmethod"},

	// Exceptions
	"BaseException":       {Kind: Exception, JS: "Error"},
	"Exception":           {Kind: Exception, JS: "Error"},
	"TypeError":           {Kind: Exception, JS: "TypeError"},
	"ValueError":          {Kind: Exception, Helper: "ValueError"},
	"KeyError":            {Kind: Exception, Helper: "KeyError"},
	"IndexError":          {Kind: Exception, Helper: "IndexError"},
	"AttributeError":      {Kind: Exception, Helper: "AttributeError"},
	"RuntimeError":        {Kind: Exception, Helper: "RuntimeError"},
	"NotImplementedError": {Kind: Exception, Helper: "NotImplementedError"},
	"ZeroDivisionError":   {Kind: Exception, Helper: "ZeroDivisionError"},
	"AssertionError":      {Kind: Exception, Helper: "AssertionError"},
	"StopIteration":       {Kind: Exception, Helper: "StopIteration"},

	// Host globals reachable by name
	"console":      {Kind: Constant, JS: "console"},
	"Math":         {Kind: Constant, JS: "Math"},
	"JSON":         {Kind: Constant, JS: "JSON"},
	"Object":       {Kind: Constant, JS: "Object"},
	"Array":        {Kind: Constant, JS: "Array"},
	"Number":       {Kind: Constant, JS: "Number"},
	"String":       {Kind: Constant, JS: "String"},
	"Promise":      {Kind: Constant, JS: "Promise"},
	"Date":         {Kind: Constant, JS: "Date"},
	"Map":          {Kind: Constant, JS: "Map"},
	"Set":          {Kind: Constant, JS: "Set"},
	"Symbol":       {Kind: Constant, JS: "Symbol"},
	"Error":        {Kind: Constant, JS: "Error"},
	"globalThis":   {Kind: Constant, JS: "globalThis"},
	"setTimeout":   {Kind: Constant, JS: "setTimeout"},
	"clearTimeout": {Kind: Constant, JS: "clearTimeout"},
	"__name__":     {Kind: Constant, JS: "\"__main__\""},
}

// LookupBuiltin returns the lowering for a builtin name
func LookupBuiltin(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// BuiltinNames returns every builtin name in sorted order
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsConstructor reports whether calling the builtin needs `new`
func (b Builtin) IsConstructor() bool {
	return b.Kind == Class || b.Kind == Exception
}
