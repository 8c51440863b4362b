// Package htmldom renders virtual trees into an in-memory HTML document
// built on golang.org/x/net/html.
//
// Document implements reconcile.Renderer with *html.Node handles. Trees are
// mounted under a container element, <div id="root">, and patch paths are
// resolved relative to the node mounted there.
//
//	doc := htmldom.NewDocument()
//	rec := reconcile.New(doc, doc.Root())
//	_ = rec.Update(ctx, tree)
//	fmt.Println(doc.HTML())
//
// Parse goes the other way, reading an HTML fragment into a VNode.
package htmldom
