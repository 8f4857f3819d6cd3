// Package rules defines the closed catalog of tutorial verification rules.
//
// The catalog order is the tutorial order: it is the total order used to
// sort diagnostics and to choose the single diagnostic reported in
// single-step mode.
package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a catalog rule. The zero value is not a rule.
type ID uint8

// Catalog rules in tutorial order. Identifiers match the published rule
// names, so MissingId and IdDeclTypeError keep their spelling.
const (
	MissingInit ID = iota + 1
	IncorrectInitSig
	InvalidStatement
	MissingRegisterStatement
	TooManyInitStatements
	IncorrectRegister
	IncorrectArguments

	MissingId
	IncorrectIdDeclaration
	MissingRule
	InternalAndStaticError
	IncorrectRuleInit
	IdDeclTypeError
	DefaultSeverityError
	EnabledByDefaultError
	MissingSuppDiag
	IncorrectSigSuppDiag
	MissingAccessor
	TooManyAccessors
	IncorrectAccessorReturn
	SupportedRules

	MissingAnalysisMethod
	IncorrectAnalysisSig
	IfStatementMissing
	IfStatementIncorrect
	IfKeywordMissing
	IfKeywordIncorrect
	TrailingTriviaCheckMissing
	TrailingTriviaCheckIncorrect
	TrailingTriviaVarMissing
	TrailingTriviaVarIncorrect
	TrailingTriviaKindCheckMissing
	TrailingTriviaKindCheckIncorrect
	WhitespaceCheckMissing
	WhitespaceCheckIncorrect
	ReturnStatementMissing
	ReturnStatementIncorrect
	OpenParenMissing
	OpenParenIncorrect
	StartSpanMissing
	StartSpanIncorrect
	EndSpanMissing
	EndSpanIncorrect
	SpanMissing
	SpanIncorrect
	LocationMissing
	LocationIncorrect
	DiagnosticMissing
	DiagnosticIncorrect
	DiagnosticReportMissing
	DiagnosticReportIncorrect
	TooManyStatements

	idCount
)

// Chain groups rules whose checks depend on each other.
type Chain uint8

const (
	// ChainInitialize covers registration in Initialize and the registered callback.
	ChainInitialize Chain = iota + 1
	// ChainDescriptor covers the id constant, the descriptor and SupportedDiagnostics.
	ChainDescriptor
)

func (c Chain) String() string {
	switch c {
	case ChainInitialize:
		return "initialize"
	case ChainDescriptor:
		return "descriptor"
	default:
		return "Chain(" + strconv.Itoa(int(c)) + ")"
	}
}

// Rule describes one catalog entry. Rules are immutable values.
type Rule struct {
	ID            ID
	Name          string
	Code          string
	Title         string
	MessageFormat string
	Severity      Severity
	Category      string
	Chain         Chain
}

const category = "Tutorial"

func rule(id ID, name string, chain Chain, title, format string) Rule {
	return Rule{
		ID:            id,
		Name:          name,
		Code:          fmt.Sprintf("MetaAnalyzer%03d", id),
		Title:         title,
		MessageFormat: format,
		Severity:      SeverityError,
		Category:      category,
		Chain:         chain,
	}
}

var catalog = [idCount]Rule{
	MissingInit: rule(MissingInit, "MissingInit", ChainInitialize,
		"Missing Initialize method",
		"The analyzer '{0}' is missing the required Initialize method"),
	IncorrectInitSig: rule(IncorrectInitSig, "IncorrectInitSig", ChainInitialize,
		"Incorrect method signature",
		"The signature for the 'Initialize' method is incorrect"),
	InvalidStatement: rule(InvalidStatement, "InvalidStatement", ChainInitialize,
		"Incorrect statement",
		"The Initialize method only registers actions: the statement '{0}' is invalid"),
	MissingRegisterStatement: rule(MissingRegisterStatement, "MissingRegisterStatement", ChainInitialize,
		"Missing register statement",
		"An action must be registered within the 'Initialize' method"),
	TooManyInitStatements: rule(TooManyInitStatements, "TooManyInitStatements", ChainInitialize,
		"Multiple registered actions",
		"The 'Initialize' method registers multiple actions"),
	IncorrectRegister: rule(IncorrectRegister, "IncorrectRegister", ChainInitialize,
		"Incorrect register statement",
		"A syntax node action should be registered on '{0}' by calling {0}.RegisterSyntaxNodeAction"),
	IncorrectArguments: rule(IncorrectArguments, "IncorrectArguments", ChainInitialize,
		"Incorrect arguments",
		"The method RegisterSyntaxNodeAction requires two arguments: a method group and SyntaxKind.IfStatement"),

	MissingId: rule(MissingId, "MissingId", ChainDescriptor,
		"Missing diagnostic id",
		"The analyzer '{0}' is missing a diagnostic id"),
	IncorrectIdDeclaration: rule(IncorrectIdDeclaration, "IncorrectIdDeclaration", ChainDescriptor,
		"Incorrect diagnostic id declaration",
		"The diagnostic id '{0}' should be initialized with a string literal"),
	MissingRule: rule(MissingRule, "MissingRule", ChainDescriptor,
		"Missing rule",
		"The analyzer '{0}' needs a DiagnosticDescriptor rule describing the diagnostic"),
	InternalAndStaticError: rule(InternalAndStaticError, "InternalAndStaticError", ChainDescriptor,
		"Incorrect rule modifiers",
		"The rule '{0}' should be declared internal and static"),
	IncorrectRuleInit: rule(IncorrectRuleInit, "IncorrectRuleInit", ChainDescriptor,
		"Incorrect rule initialization",
		"The rule should be initialized with new DiagnosticDescriptor(id, title, messageFormat, category, defaultSeverity, isEnabledByDefault)"),
	IdDeclTypeError: rule(IdDeclTypeError, "IdDeclTypeError", ChainDescriptor,
		"Incorrect rule id",
		"The rule id should be the diagnostic id constant '{0}'"),
	DefaultSeverityError: rule(DefaultSeverityError, "DefaultSeverityError", ChainDescriptor,
		"Incorrect default severity",
		"The default severity should be one of DiagnosticSeverity.Error, Warning, Info or Hidden"),
	EnabledByDefaultError: rule(EnabledByDefaultError, "EnabledByDefaultError", ChainDescriptor,
		"Rule not enabled by default",
		"The rule should be enabled by default: isEnabledByDefault should be true"),
	MissingSuppDiag: rule(MissingSuppDiag, "MissingSuppDiag", ChainDescriptor,
		"Missing SupportedDiagnostics property",
		"The analyzer '{0}' is missing the required SupportedDiagnostics property"),
	IncorrectSigSuppDiag: rule(IncorrectSigSuppDiag, "IncorrectSigSuppDiag", ChainDescriptor,
		"Incorrect SupportedDiagnostics signature",
		"The SupportedDiagnostics property should be declared public override ImmutableArray<DiagnosticDescriptor>"),
	MissingAccessor: rule(MissingAccessor, "MissingAccessor", ChainDescriptor,
		"Missing get accessor",
		"The SupportedDiagnostics property is missing a get accessor"),
	TooManyAccessors: rule(TooManyAccessors, "TooManyAccessors", ChainDescriptor,
		"Too many accessors",
		"The SupportedDiagnostics property only needs a get accessor"),
	IncorrectAccessorReturn: rule(IncorrectAccessorReturn, "IncorrectAccessorReturn", ChainDescriptor,
		"Incorrect get accessor",
		"The get accessor should only return ImmutableArray.Create(...) with the supported rules"),
	SupportedRules: rule(SupportedRules, "SupportedRules", ChainDescriptor,
		"Unsupported rule",
		"The immutable array should contain the rule '{0}'"),

	MissingAnalysisMethod: rule(MissingAnalysisMethod, "MissingAnalysisMethod", ChainInitialize,
		"Missing analysis method",
		"The method '{0}' that is registered in 'Initialize' is missing"),
	IncorrectAnalysisSig: rule(IncorrectAnalysisSig, "IncorrectAnalysisSig", ChainInitialize,
		"Incorrect analysis method signature",
		"The method '{0}' should be private, return void and take a single SyntaxNodeAnalysisContext parameter"),
	IfStatementMissing: rule(IfStatementMissing, "IfStatementMissing", ChainInitialize,
		"Missing if statement extraction",
		"The first step of the node analysis is to extract the if statement from context"),
	IfStatementIncorrect: rule(IfStatementIncorrect, "IfStatementIncorrect", ChainInitialize,
		"Incorrect if statement extraction",
		"This statement should extract the if statement in question by casting context.Node to IfStatementSyntax"),
	IfKeywordMissing: rule(IfKeywordMissing, "IfKeywordMissing", ChainInitialize,
		"Missing if keyword extraction",
		"The second step is to extract the 'if' keyword from ifStatement"),
	IfKeywordIncorrect: rule(IfKeywordIncorrect, "IfKeywordIncorrect", ChainInitialize,
		"Incorrect if keyword extraction",
		"This statement should extract the 'if' keyword from ifStatement"),
	TrailingTriviaCheckMissing: rule(TrailingTriviaCheckMissing, "TrailingTriviaCheckMissing", ChainInitialize,
		"Missing trailing trivia check",
		"The third step is to begin looking for the space between 'if' and '(' by checking if ifKeyword has trailing trivia"),
	TrailingTriviaCheckIncorrect: rule(TrailingTriviaCheckIncorrect, "TrailingTriviaCheckIncorrect", ChainInitialize,
		"Incorrect trailing trivia check",
		"This statement should be an if statement that checks to see if ifKeyword has trailing trivia"),
	TrailingTriviaVarMissing: rule(TrailingTriviaVarMissing, "TrailingTriviaVarMissing", ChainInitialize,
		"Missing trailing trivia extraction",
		"The fourth step is to extract the last trailing trivia of ifKeyword into a variable"),
	TrailingTriviaVarIncorrect: rule(TrailingTriviaVarIncorrect, "TrailingTriviaVarIncorrect", ChainInitialize,
		"Incorrect trailing trivia extraction",
		"This statement should extract the last trailing trivia of ifKeyword into a variable"),
	TrailingTriviaKindCheckMissing: rule(TrailingTriviaKindCheckMissing, "TrailingTriviaKindCheckMissing", ChainInitialize,
		"Missing trailing trivia kind check",
		"The fifth step is to check that the kind of trailingTrivia is whitespace trivia"),
	TrailingTriviaKindCheckIncorrect: rule(TrailingTriviaKindCheckIncorrect, "TrailingTriviaKindCheckIncorrect", ChainInitialize,
		"Incorrect trailing trivia kind check",
		"This statement should be an if statement that checks to see if trailingTrivia is whitespace trivia"),
	WhitespaceCheckMissing: rule(WhitespaceCheckMissing, "WhitespaceCheckMissing", ChainInitialize,
		"Missing whitespace check",
		"The sixth step is to check that trailingTrivia is exactly one space"),
	WhitespaceCheckIncorrect: rule(WhitespaceCheckIncorrect, "WhitespaceCheckIncorrect", ChainInitialize,
		"Incorrect whitespace check",
		"This statement should be an if statement that checks to see if trailingTrivia is a single space"),
	ReturnStatementMissing: rule(ReturnStatementMissing, "ReturnStatementMissing", ChainInitialize,
		"Missing return statement",
		"The seventh step is to return from the method when the spacing is correct"),
	ReturnStatementIncorrect: rule(ReturnStatementIncorrect, "ReturnStatementIncorrect", ChainInitialize,
		"Incorrect return statement",
		"This statement should return from the method without a value"),
	OpenParenMissing: rule(OpenParenMissing, "OpenParenMissing", ChainInitialize,
		"Missing open parenthesis extraction",
		"The eighth step is to extract the open parenthesis of ifStatement into a variable"),
	OpenParenIncorrect: rule(OpenParenIncorrect, "OpenParenIncorrect", ChainInitialize,
		"Incorrect open parenthesis extraction",
		"This statement should extract the open parenthesis of ifStatement into a variable"),
	StartSpanMissing: rule(StartSpanMissing, "StartSpanMissing", ChainInitialize,
		"Missing diagnostic span start",
		"The ninth step is to determine the start of the diagnostic span from ifKeyword"),
	StartSpanIncorrect: rule(StartSpanIncorrect, "StartSpanIncorrect", ChainInitialize,
		"Incorrect diagnostic span start",
		"This statement should extract the start of the span of ifKeyword into a variable"),
	EndSpanMissing: rule(EndSpanMissing, "EndSpanMissing", ChainInitialize,
		"Missing diagnostic span end",
		"The tenth step is to determine the end of the diagnostic span from openParen"),
	EndSpanIncorrect: rule(EndSpanIncorrect, "EndSpanIncorrect", ChainInitialize,
		"Incorrect diagnostic span end",
		"This statement should extract the start of the span of openParen into a variable"),
	SpanMissing: rule(SpanMissing, "SpanMissing", ChainInitialize,
		"Missing diagnostic span",
		"The eleventh step is to create the diagnostic span from its start and end"),
	SpanIncorrect: rule(SpanIncorrect, "SpanIncorrect", ChainInitialize,
		"Incorrect diagnostic span",
		"This statement should create a TextSpan from startDiagnosticSpan and endDiagnosticSpan"),
	LocationMissing: rule(LocationMissing, "LocationMissing", ChainInitialize,
		"Missing diagnostic location",
		"The twelfth step is to create the location of the diagnostic"),
	LocationIncorrect: rule(LocationIncorrect, "LocationIncorrect", ChainInitialize,
		"Incorrect diagnostic location",
		"This statement should create a Location from the syntax tree of ifStatement and diagnosticSpan"),
	DiagnosticMissing: rule(DiagnosticMissing, "DiagnosticMissing", ChainInitialize,
		"Missing diagnostic",
		"The thirteenth step is to create the diagnostic"),
	DiagnosticIncorrect: rule(DiagnosticIncorrect, "DiagnosticIncorrect", ChainInitialize,
		"Incorrect diagnostic",
		"This statement should create a Diagnostic from the rule, diagnosticLocation and the rule's message format"),
	DiagnosticReportMissing: rule(DiagnosticReportMissing, "DiagnosticReportMissing", ChainInitialize,
		"Missing diagnostic report",
		"The last step is to report the diagnostic"),
	DiagnosticReportIncorrect: rule(DiagnosticReportIncorrect, "DiagnosticReportIncorrect", ChainInitialize,
		"Incorrect diagnostic report",
		"This statement should report the diagnostic through context"),
	TooManyStatements: rule(TooManyStatements, "TooManyStatements", ChainInitialize,
		"Too many statements",
		"This statement is not part of the tutorial and should be removed: '{0}'"),
}

var byName = func() map[string]ID {
	m := make(map[string]ID, len(catalog))
	for id := ID(1); id < idCount; id++ {
		m[catalog[id].Name] = id
	}
	return m
}()

// All returns every rule in catalog order.
func All() []Rule {
	out := make([]Rule, 0, idCount-1)
	for id := ID(1); id < idCount; id++ {
		out = append(out, catalog[id])
	}
	return out
}

// IDs returns every rule id in catalog order.
func IDs() []ID {
	out := make([]ID, 0, idCount-1)
	for id := ID(1); id < idCount; id++ {
		out = append(out, id)
	}
	return out
}

// Lookup resolves a rule by its stable name or code.
func Lookup(name string) (Rule, bool) {
	if id, ok := byName[name]; ok {
		return catalog[id], true
	}
	for id := ID(1); id < idCount; id++ {
		if strings.EqualFold(catalog[id].Code, name) {
			return catalog[id], true
		}
	}
	return Rule{}, false
}

// Valid reports whether id is a catalog rule.
func (id ID) Valid() bool {
	return id > 0 && id < idCount
}

// Rule returns the catalog entry for id. Invalid ids return the zero Rule.
func (id ID) Rule() Rule {
	if !id.Valid() {
		return Rule{}
	}
	return catalog[id]
}

func (id ID) String() string {
	if !id.Valid() {
		return "ID(" + strconv.Itoa(int(id)) + ")"
	}
	return catalog[id].Name
}

// Format fills the {N} slots of the message format with args. Slots
// without a matching argument are left as written.
func (r Rule) Format(args ...string) string {
	msg := r.MessageFormat
	for i, arg := range args {
		msg = strings.ReplaceAll(msg, "{"+strconv.Itoa(i)+"}", arg)
	}
	return msg
}
