package grammar

// Language ids with built-in tables.
const (
	LangGo         = "go"
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangRust       = "rust"
	LangJava       = "java"
	LangKotlin     = "kotlin"
	LangSQL        = "sql"
)

func builtin() []*RuleSet {
	return []*RuleSet{
		goRules(),
		pythonRules(),
		javascriptRules(),
		typescriptRules(LangTypeScript, ".ts", ".mts", ".cts"),
		typescriptRules(LangTSX, ".tsx"),
		rustRules(),
		javaRules(),
		kotlinRules(),
		sqlRules(),
	}
}

func goRules() *RuleSet {
	return &RuleSet{
		Language:   LangGo,
		Extensions: []string{".go"},
		Queries: []string{
			`(function_declaration name: (identifier) @name) @definition.function`,
			`(method_declaration name: (field_identifier) @name) @definition.method`,
			`(type_spec name: (type_identifier) @name type: (struct_type)) @definition.struct`,
			`(type_spec name: (type_identifier) @name type: (interface_type)) @definition.interface`,
			`(type_spec name: (type_identifier) @name type: [(type_identifier) (qualified_type) (map_type) (slice_type) (array_type) (pointer_type) (function_type) (channel_type)]) @definition.type`,
			`(call_expression function: (identifier) @name) @reference.call`,
			`(call_expression function: (selector_expression field: (field_identifier) @name)) @reference.call`,
			`(import_spec path: (interpreted_string_literal) @name) @reference.import`,
			`(field_declaration !name type: (type_identifier) @name) @reference.extends`,
		},
		ScopeNodes: map[string]ScopeNode{
			"function_declaration": {Field: "name"},
			"method_declaration":   {Field: "name", Receiver: "receiver"},
			"type_spec":            {Field: "name", Class: true},
		},
		DocNodes: []string{"comment"},
	}
}

func pythonRules() *RuleSet {
	return &RuleSet{
		Language:   LangPython,
		Extensions: []string{".py", ".pyi"},
		Queries: []string{
			`(class_definition name: (identifier) @name) @definition.class`,
			`(function_definition name: (identifier) @name) @definition.function`,
			`(class_definition superclasses: (argument_list (identifier) @name) @reference.extends)`,
			`(class_definition superclasses: (argument_list (attribute attribute: (identifier) @name)) @reference.extends)`,
			`(call function: (identifier) @name) @reference.call`,
			`(call function: (attribute attribute: (identifier) @name)) @reference.call`,
			`(import_statement name: (dotted_name) @name) @reference.import`,
			`(import_statement name: (aliased_import name: (dotted_name) @name)) @reference.import`,
			`(import_from_statement module_name: (dotted_name) @name) @reference.import`,
		},
		ScopeNodes: map[string]ScopeNode{
			"class_definition":    {Field: "name", Class: true},
			"function_definition": {Field: "name"},
		},
		DocNodes:   []string{"comment"},
		Docstrings: true,
		Indent:     true,
	}
}

func javascriptRules() *RuleSet {
	return &RuleSet{
		Language:   LangJavaScript,
		Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		Queries: []string{
			`(class_declaration name: (identifier) @name) @definition.class`,
			`(function_declaration name: (identifier) @name) @definition.function`,
			`(generator_function_declaration name: (identifier) @name) @definition.function`,
			`(method_definition name: (property_identifier) @name) @definition.method`,
			`(variable_declarator name: (identifier) @name value: (arrow_function)) @definition.function`,
			`(class_heritage (identifier) @name) @reference.extends`,
			`(call_expression function: (identifier) @name) @reference.call`,
			`(call_expression function: (member_expression property: (property_identifier) @name)) @reference.call`,
			`(import_statement source: (string) @name) @reference.import`,
		},
		ScopeNodes: map[string]ScopeNode{
			"class_declaration":    {Field: "name", Class: true},
			"function_declaration": {Field: "name"},
			"method_definition":    {Field: "name"},
			"variable_declarator":  {Field: "name"},
		},
		DocNodes: []string{"comment"},
	}
}

func typescriptRules(lang string, exts ...string) *RuleSet {
	return &RuleSet{
		Language:   lang,
		Extensions: exts,
		Queries: []string{
			`(class_declaration name: (type_identifier) @name) @definition.class`,
			`(abstract_class_declaration name: (type_identifier) @name) @definition.class`,
			`(interface_declaration name: (type_identifier) @name) @definition.interface`,
			`(type_alias_declaration name: (type_identifier) @name) @definition.type`,
			`(enum_declaration name: (identifier) @name) @definition.enum`,
			`(function_declaration name: (identifier) @name) @definition.function`,
			`(method_definition name: (property_identifier) @name) @definition.method`,
			`(method_signature name: (property_identifier) @name) @definition.method`,
			`(variable_declarator name: (identifier) @name value: (arrow_function)) @definition.function`,
			`(extends_clause value: (identifier) @name) @reference.extends`,
			`(implements_clause (type_identifier) @name) @reference.implements`,
			`(extends_type_clause (type_identifier) @name) @reference.extends`,
			`(call_expression function: (identifier) @name) @reference.call`,
			`(call_expression function: (member_expression property: (property_identifier) @name)) @reference.call`,
			`(import_statement source: (string) @name) @reference.import`,
		},
		ScopeNodes: map[string]ScopeNode{
			"class_declaration":          {Field: "name", Class: true},
			"abstract_class_declaration": {Field: "name", Class: true},
			"interface_declaration":      {Field: "name", Class: true},
			"function_declaration":       {Field: "name"},
			"method_definition":          {Field: "name"},
			"variable_declarator":        {Field: "name"},
		},
		DocNodes: []string{"comment"},
	}
}

func rustRules() *RuleSet {
	return &RuleSet{
		Language:   LangRust,
		Extensions: []string{".rs"},
		Queries: []string{
			`(function_item name: (identifier) @name) @definition.function`,
			`(function_signature_item name: (identifier) @name) @definition.method`,
			`(struct_item name: (type_identifier) @name) @definition.struct`,
			`(enum_item name: (type_identifier) @name) @definition.enum`,
			`(trait_item name: (type_identifier) @name) @definition.trait`,
			`(type_item name: (type_identifier) @name) @definition.type`,
			`(mod_item name: (identifier) @name) @definition.module`,
			`(impl_item trait: (type_identifier) @name type: (type_identifier) @source) @reference.implements`,
			`(impl_item trait: (scoped_type_identifier name: (type_identifier) @name) type: (type_identifier) @source) @reference.implements`,
			`(call_expression function: (identifier) @name) @reference.call`,
			`(call_expression function: (field_expression field: (field_identifier) @name)) @reference.call`,
			`(call_expression function: (scoped_identifier name: (identifier) @name)) @reference.call`,
			`(use_declaration argument: (scoped_identifier) @name) @reference.import`,
			`(use_declaration argument: (identifier) @name) @reference.import`,
			`(use_declaration argument: (scoped_use_list path: (_) @name)) @reference.import`,
		},
		ScopeNodes: map[string]ScopeNode{
			"impl_item":     {Field: "type", Class: true},
			"trait_item":    {Field: "name", Class: true},
			"mod_item":      {Field: "name"},
			"function_item": {Field: "name"},
		},
		DocNodes: []string{"line_comment", "block_comment"},
	}
}

func javaRules() *RuleSet {
	return &RuleSet{
		Language:   LangJava,
		Extensions: []string{".java"},
		Queries: []string{
			`(class_declaration name: (identifier) @name) @definition.class`,
			`(interface_declaration name: (identifier) @name) @definition.interface`,
			`(enum_declaration name: (identifier) @name) @definition.enum`,
			`(record_declaration name: (identifier) @name) @definition.class`,
			`(method_declaration name: (identifier) @name) @definition.method`,
			`(constructor_declaration name: (identifier) @name) @definition.method`,
			`(superclass (type_identifier) @name) @reference.extends`,
			`(super_interfaces (type_list (type_identifier) @name)) @reference.implements`,
			`(extends_interfaces (type_list (type_identifier) @name)) @reference.extends`,
			`(method_invocation name: (identifier) @name) @reference.call`,
			`(object_creation_expression type: (type_identifier) @name) @reference.call`,
			`(import_declaration (scoped_identifier) @name) @reference.import`,
		},
		ScopeNodes: map[string]ScopeNode{
			"class_declaration":       {Field: "name", Class: true},
			"interface_declaration":   {Field: "name", Class: true},
			"enum_declaration":        {Field: "name", Class: true},
			"record_declaration":      {Field: "name", Class: true},
			"method_declaration":      {Field: "name"},
			"constructor_declaration": {Field: "name"},
		},
		DocNodes: []string{"block_comment", "line_comment", "comment"},
	}
}

func kotlinRules() *RuleSet {
	return &RuleSet{
		Language:   LangKotlin,
		Extensions: []string{".kt", ".kts"},
		Queries: []string{
			`(class_declaration (type_identifier) @name) @definition.class`,
			`(object_declaration (type_identifier) @name) @definition.class`,
			`(function_declaration (simple_identifier) @name) @definition.function`,
			`(delegation_specifier (constructor_invocation (user_type (type_identifier) @name))) @reference.extends`,
			`(delegation_specifier (user_type (type_identifier) @name)) @reference.implements`,
			`(call_expression (simple_identifier) @name) @reference.call`,
			`(call_expression (navigation_expression (navigation_suffix (simple_identifier) @name))) @reference.call`,
			`(import_header (identifier) @name) @reference.import`,
		},
		ScopeNodes: map[string]ScopeNode{
			"class_declaration":    {Class: true},
			"object_declaration":   {Class: true},
			"function_declaration": {},
		},
		DocNodes: []string{"multiline_comment", "line_comment"},
	}
}
