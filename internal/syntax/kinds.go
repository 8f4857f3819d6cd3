package syntax

// NodeKind identifies a CST node kind. Names follow the tree-sitter C#
// grammar, which both parser backends emit.
type NodeKind uint16

// NodeKind values. KindUnknown covers grammar kinds the checks never inspect.
const (
	KindUnknown NodeKind = iota
	KindCompilationUnit
	KindUsingDirective
	KindExternAliasDirective
	KindGlobalStatement
	KindNamespaceDeclaration
	KindFileScopedNamespaceDeclaration
	KindClassDeclaration
	KindStructDeclaration
	KindInterfaceDeclaration
	KindRecordDeclaration
	KindRecordStructDeclaration
	KindEnumDeclaration
	KindEnumMemberDeclarationList
	KindEnumMemberDeclaration
	KindDelegateDeclaration
	KindDeclarationList
	KindAttributeList
	KindAttribute
	KindAttributeArgumentList
	KindAttributeArgument
	KindAttributeTargetSpecifier
	KindBaseList
	KindPrimaryConstructorBaseType
	KindTypeParameterList
	KindTypeParameter
	KindTypeParameterConstraintsClause
	KindModifier
	KindFieldDeclaration
	KindEventFieldDeclaration
	KindEventDeclaration
	KindVariableDeclaration
	KindVariableDeclarator
	KindMethodDeclaration
	KindConstructorDeclaration
	KindConstructorInitializer
	KindDestructorDeclaration
	KindOperatorDeclaration
	KindConversionOperatorDeclaration
	KindIndexerDeclaration
	KindPropertyDeclaration
	KindAccessorList
	KindAccessorDeclaration
	KindArrowExpressionClause
	KindExplicitInterfaceSpecifier
	KindParameterList
	KindBracketedParameterList
	KindParameter
	KindPredefinedType
	KindImplicitType
	KindIdentifier
	KindQualifiedName
	KindAliasQualifiedName
	KindGenericName
	KindTypeArgumentList
	KindArrayType
	KindArrayRankSpecifier
	KindNullableType
	KindTupleType
	KindTupleElement
	KindBlock
	KindLocalDeclarationStatement
	KindLocalFunctionStatement
	KindExpressionStatement
	KindIfStatement
	KindReturnStatement
	KindThrowStatement
	KindBreakStatement
	KindContinueStatement
	KindGotoStatement
	KindDoStatement
	KindWhileStatement
	KindForStatement
	KindForEachStatement
	KindCheckedStatement
	KindUnsafeStatement
	KindFixedStatement
	KindLockStatement
	KindLabeledStatement
	KindEmptyStatement
	KindTryStatement
	KindCatchClause
	KindCatchDeclaration
	KindCatchFilterClause
	KindFinallyClause
	KindUsingStatement
	KindSwitchStatement
	KindSwitchBody
	KindSwitchSection
	KindCaseSwitchLabel
	KindDefaultSwitchLabel
	KindWhenClause
	KindYieldStatement
	KindTuplePattern
	KindInvocationExpression
	KindArgumentList
	KindBracketedArgumentList
	KindArgument
	KindNameColon
	KindNameEquals
	KindDeclarationExpression
	KindMemberAccessExpression
	KindConditionalAccessExpression
	KindMemberBindingExpression
	KindElementBindingExpression
	KindElementAccessExpression
	KindCastExpression
	KindObjectCreationExpression
	KindImplicitObjectCreationExpression
	KindAnonymousObjectCreationExpression
	KindArrayCreationExpression
	KindImplicitArrayCreationExpression
	KindStackallocExpression
	KindInitializerExpression
	KindCollectionExpression
	KindSpreadElement
	KindAssignmentExpression
	KindBinaryExpression
	KindAsExpression
	KindIsPatternExpression
	KindPrefixUnaryExpression
	KindPostfixUnaryExpression
	KindRangeExpression
	KindAwaitExpression
	KindThrowExpression
	KindRefExpression
	KindParenthesizedExpression
	KindTupleExpression
	KindConditionalExpression
	KindLambdaExpression
	KindAnonymousMethodExpression
	KindThisExpression
	KindBaseExpression
	KindTypeOfExpression
	KindSizeOfExpression
	KindDefaultExpression
	KindCheckedExpression
	KindSwitchExpression
	KindSwitchExpressionArm
	KindWithExpression
	KindDeclarationPattern
	KindConstantPattern
	KindRelationalPattern
	KindNegatedPattern
	KindAndPattern
	KindOrPattern
	KindVarPattern
	KindDiscard
	KindRecursivePattern
	KindParenthesizedPattern
	KindIntegerLiteral
	KindRealLiteral
	KindCharacterLiteral
	KindStringLiteral
	KindVerbatimStringLiteral
	KindRawStringLiteral
	KindInterpolatedStringExpression
	KindBooleanLiteral
	KindNullLiteral
	KindError

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:                           "unknown",
	KindCompilationUnit:                   "compilation_unit",
	KindUsingDirective:                    "using_directive",
	KindExternAliasDirective:              "extern_alias_directive",
	KindGlobalStatement:                   "global_statement",
	KindNamespaceDeclaration:              "namespace_declaration",
	KindFileScopedNamespaceDeclaration:    "file_scoped_namespace_declaration",
	KindClassDeclaration:                  "class_declaration",
	KindStructDeclaration:                 "struct_declaration",
	KindInterfaceDeclaration:              "interface_declaration",
	KindRecordDeclaration:                 "record_declaration",
	KindRecordStructDeclaration:           "record_struct_declaration",
	KindEnumDeclaration:                   "enum_declaration",
	KindEnumMemberDeclarationList:         "enum_member_declaration_list",
	KindEnumMemberDeclaration:             "enum_member_declaration",
	KindDelegateDeclaration:               "delegate_declaration",
	KindDeclarationList:                   "declaration_list",
	KindAttributeList:                     "attribute_list",
	KindAttribute:                         "attribute",
	KindAttributeArgumentList:             "attribute_argument_list",
	KindAttributeArgument:                 "attribute_argument",
	KindAttributeTargetSpecifier:          "attribute_target_specifier",
	KindBaseList:                          "base_list",
	KindPrimaryConstructorBaseType:        "primary_constructor_base_type",
	KindTypeParameterList:                 "type_parameter_list",
	KindTypeParameter:                     "type_parameter",
	KindTypeParameterConstraintsClause:    "type_parameter_constraints_clause",
	KindModifier:                          "modifier",
	KindFieldDeclaration:                  "field_declaration",
	KindEventFieldDeclaration:             "event_field_declaration",
	KindEventDeclaration:                  "event_declaration",
	KindVariableDeclaration:               "variable_declaration",
	KindVariableDeclarator:                "variable_declarator",
	KindMethodDeclaration:                 "method_declaration",
	KindConstructorDeclaration:            "constructor_declaration",
	KindConstructorInitializer:            "constructor_initializer",
	KindDestructorDeclaration:             "destructor_declaration",
	KindOperatorDeclaration:               "operator_declaration",
	KindConversionOperatorDeclaration:     "conversion_operator_declaration",
	KindIndexerDeclaration:                "indexer_declaration",
	KindPropertyDeclaration:               "property_declaration",
	KindAccessorList:                      "accessor_list",
	KindAccessorDeclaration:               "accessor_declaration",
	KindArrowExpressionClause:             "arrow_expression_clause",
	KindExplicitInterfaceSpecifier:        "explicit_interface_specifier",
	KindParameterList:                     "parameter_list",
	KindBracketedParameterList:            "bracketed_parameter_list",
	KindParameter:                         "parameter",
	KindPredefinedType:                    "predefined_type",
	KindImplicitType:                      "implicit_type",
	KindIdentifier:                        "identifier",
	KindQualifiedName:                     "qualified_name",
	KindAliasQualifiedName:                "alias_qualified_name",
	KindGenericName:                       "generic_name",
	KindTypeArgumentList:                  "type_argument_list",
	KindArrayType:                         "array_type",
	KindArrayRankSpecifier:                "array_rank_specifier",
	KindNullableType:                      "nullable_type",
	KindTupleType:                         "tuple_type",
	KindTupleElement:                      "tuple_element",
	KindBlock:                             "block",
	KindLocalDeclarationStatement:         "local_declaration_statement",
	KindLocalFunctionStatement:            "local_function_statement",
	KindExpressionStatement:               "expression_statement",
	KindIfStatement:                       "if_statement",
	KindReturnStatement:                   "return_statement",
	KindThrowStatement:                    "throw_statement",
	KindBreakStatement:                    "break_statement",
	KindContinueStatement:                 "continue_statement",
	KindGotoStatement:                     "goto_statement",
	KindDoStatement:                       "do_statement",
	KindWhileStatement:                    "while_statement",
	KindForStatement:                      "for_statement",
	KindForEachStatement:                  "foreach_statement",
	KindCheckedStatement:                  "checked_statement",
	KindUnsafeStatement:                   "unsafe_statement",
	KindFixedStatement:                    "fixed_statement",
	KindLockStatement:                     "lock_statement",
	KindLabeledStatement:                  "labeled_statement",
	KindEmptyStatement:                    "empty_statement",
	KindTryStatement:                      "try_statement",
	KindCatchClause:                       "catch_clause",
	KindCatchDeclaration:                  "catch_declaration",
	KindCatchFilterClause:                 "catch_filter_clause",
	KindFinallyClause:                     "finally_clause",
	KindUsingStatement:                    "using_statement",
	KindSwitchStatement:                   "switch_statement",
	KindSwitchBody:                        "switch_body",
	KindSwitchSection:                     "switch_section",
	KindCaseSwitchLabel:                   "case_switch_label",
	KindDefaultSwitchLabel:                "default_switch_label",
	KindWhenClause:                        "when_clause",
	KindYieldStatement:                    "yield_statement",
	KindTuplePattern:                      "tuple_pattern",
	KindInvocationExpression:              "invocation_expression",
	KindArgumentList:                      "argument_list",
	KindBracketedArgumentList:             "bracketed_argument_list",
	KindArgument:                          "argument",
	KindNameColon:                         "name_colon",
	KindNameEquals:                        "name_equals",
	KindDeclarationExpression:             "declaration_expression",
	KindMemberAccessExpression:            "member_access_expression",
	KindConditionalAccessExpression:       "conditional_access_expression",
	KindMemberBindingExpression:           "member_binding_expression",
	KindElementBindingExpression:          "element_binding_expression",
	KindElementAccessExpression:           "element_access_expression",
	KindCastExpression:                    "cast_expression",
	KindObjectCreationExpression:          "object_creation_expression",
	KindImplicitObjectCreationExpression:  "implicit_object_creation_expression",
	KindAnonymousObjectCreationExpression: "anonymous_object_creation_expression",
	KindArrayCreationExpression:           "array_creation_expression",
	KindImplicitArrayCreationExpression:   "implicit_array_creation_expression",
	KindStackallocExpression:              "stackalloc_expression",
	KindInitializerExpression:             "initializer_expression",
	KindCollectionExpression:              "collection_expression",
	KindSpreadElement:                     "spread_element",
	KindAssignmentExpression:              "assignment_expression",
	KindBinaryExpression:                  "binary_expression",
	KindAsExpression:                      "as_expression",
	KindIsPatternExpression:               "is_pattern_expression",
	KindPrefixUnaryExpression:             "prefix_unary_expression",
	KindPostfixUnaryExpression:            "postfix_unary_expression",
	KindRangeExpression:                   "range_expression",
	KindAwaitExpression:                   "await_expression",
	KindThrowExpression:                   "throw_expression",
	KindRefExpression:                     "ref_expression",
	KindParenthesizedExpression:           "parenthesized_expression",
	KindTupleExpression:                   "tuple_expression",
	KindConditionalExpression:             "conditional_expression",
	KindLambdaExpression:                  "lambda_expression",
	KindAnonymousMethodExpression:         "anonymous_method_expression",
	KindThisExpression:                    "this_expression",
	KindBaseExpression:                    "base_expression",
	KindTypeOfExpression:                  "typeof_expression",
	KindSizeOfExpression:                  "sizeof_expression",
	KindDefaultExpression:                 "default_expression",
	KindCheckedExpression:                 "checked_expression",
	KindSwitchExpression:                  "switch_expression",
	KindSwitchExpressionArm:               "switch_expression_arm",
	KindWithExpression:                    "with_expression",
	KindDeclarationPattern:                "declaration_pattern",
	KindConstantPattern:                   "constant_pattern",
	KindRelationalPattern:                 "relational_pattern",
	KindNegatedPattern:                    "negated_pattern",
	KindAndPattern:                        "and_pattern",
	KindOrPattern:                         "or_pattern",
	KindVarPattern:                        "var_pattern",
	KindDiscard:                           "discard",
	KindRecursivePattern:                  "recursive_pattern",
	KindParenthesizedPattern:              "parenthesized_pattern",
	KindIntegerLiteral:                    "integer_literal",
	KindRealLiteral:                       "real_literal",
	KindCharacterLiteral:                  "character_literal",
	KindStringLiteral:                     "string_literal",
	KindVerbatimStringLiteral:             "verbatim_string_literal",
	KindRawStringLiteral:                  "raw_string_literal",
	KindInterpolatedStringExpression:      "interpolated_string_expression",
	KindBooleanLiteral:                    "boolean_literal",
	KindNullLiteral:                       "null_literal",
	KindError:                             "ERROR",
}

var kindsByName = func() map[string]NodeKind {
	m := make(map[string]NodeKind, len(kindNames))
	for i, name := range kindNames {
		if NodeKind(i) != KindUnknown {
			m[name] = NodeKind(i)
		}
	}
	return m
}()

// KindFromName resolves a grammar kind name. Unlisted names map to KindUnknown.
func KindFromName(name string) NodeKind {
	return kindsByName[name]
}

// KindName resolves a NodeKind to its grammar kind name.
func KindName(kind NodeKind) string {
	if kind < kindCount {
		return kindNames[kind]
	}
	return kindNames[KindUnknown]
}

func (k NodeKind) String() string {
	return KindName(k)
}

// IsTypeDeclaration reports whether k declares a class-like type.
func (k NodeKind) IsTypeDeclaration() bool {
	switch k {
	case KindClassDeclaration, KindStructDeclaration, KindInterfaceDeclaration,
		KindRecordDeclaration, KindRecordStructDeclaration:
		return true
	default:
		return false
	}
}

// IsStatement reports whether k is a statement kind.
func (k NodeKind) IsStatement() bool {
	switch k {
	case KindBlock, KindLocalDeclarationStatement, KindLocalFunctionStatement,
		KindExpressionStatement, KindIfStatement, KindReturnStatement,
		KindThrowStatement, KindBreakStatement, KindContinueStatement,
		KindGotoStatement, KindDoStatement, KindWhileStatement, KindForStatement,
		KindForEachStatement, KindCheckedStatement, KindUnsafeStatement,
		KindFixedStatement, KindLockStatement, KindLabeledStatement,
		KindEmptyStatement, KindTryStatement, KindUsingStatement,
		KindSwitchStatement, KindYieldStatement:
		return true
	default:
		return false
	}
}

// IsLiteral reports whether k is a literal expression kind.
func (k NodeKind) IsLiteral() bool {
	switch k {
	case KindIntegerLiteral, KindRealLiteral, KindCharacterLiteral, KindStringLiteral,
		KindVerbatimStringLiteral, KindRawStringLiteral, KindInterpolatedStringExpression,
		KindBooleanLiteral, KindNullLiteral:
		return true
	default:
		return false
	}
}
