// Package xmlpath evaluates the small location-path language used to address
// placeholders inside XML templates and requests.
//
// Supported syntax:
//
//	/step/step        child steps from the document
//	//step            descendant-or-self, then child
//	name, p:name, *   element name tests
//	text()            character data children
//	@name, @p:name    attributes (last step only)
//	[n]               1-based position among the candidates of one parent
//	[local-name()='x'] local name filter, any namespace
//
// Unprefixed name tests only select elements in no namespace. Prefixed tests
// are resolved through a Resolver; a prefix the resolver does not know is
// matched literally against the element's own prefix.
package xmlpath
