// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pdiddy/mosaic/pkg/types"
)

// Element ids of the page.
const (
	IDInitialState    = "initial-state"
	IDLoader          = "loader"
	IDTrendsContainer = "trends-container"
	IDTrendsChart     = "trendsChart"
	IDAIFilterLabel   = "toggleLabel"
	IDSGFilterLabel   = "sgToggleLabel"
	IDResultsArea     = "results-area"
	IDTabs            = "tabs"
	IDSynthesisTab    = "synthesis-tab"
	IDResearchTrace   = "research-trace"
	IDTraceLogs       = "trace-logs"
	IDSynthesisText   = "synthesis-text"
	IDFollowUp        = "follow-up-ui"
	IDEvidenceTab     = "evidence-tab"
	IDStatsBanner     = "stats-banner-container"
	IDSuggestion      = "suggestion-bridge"
	IDSuggestionText  = "suggestion-text"
	IDResults         = "results"
	IDProtocolTab     = "protocol-tab"
	IDProtocolLog     = "protocol-log"
	IDModal           = "detailModal"
)

const (
	initialPrompt    = "Search the narrative archive to begin."
	researchLoading  = "Initiating research protocol..."
	searchLoading    = "Generating insights..."
	followUpHeading  = "FOLLOW-UP RESPONSE"
	emptyResultsText = "No matching results in current database."
)

const skeleton = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Mosaic</title></head><body>
<header><label id="toggleLabel"></label><label id="sgToggleLabel"></label></header>
<div id="initial-state"><p>` + initialPrompt + `</p></div>
<div id="loader" hidden></div>
<div id="trends-container" hidden><div id="trendsChart"></div></div>
<main id="results-area" hidden>
<nav id="tabs"><button class="tab-btn" data-tab="synthesis">Synthesis</button><button class="tab-btn" data-tab="evidence">Evidence</button><button class="tab-btn" data-tab="protocol">Protocol</button></nav>
<section id="synthesis-tab" class="tab-content">
<div id="research-trace"><div id="trace-logs"></div></div>
<div id="synthesis-text"></div>
<div id="follow-up-ui" hidden><input id="followUpInput" type="text"><button id="followUpBtn">Ask</button></div>
</section>
<section id="evidence-tab" class="tab-content">
<div id="stats-banner-container" hidden></div>
<div id="suggestion-bridge" hidden><div>Intelligence Suggestion</div><div id="suggestion-text"></div></div>
<div id="results"></div>
</section>
<section id="protocol-tab" class="tab-content"><div id="protocol-log"></div></section>
</main>
<div id="detailModal" hidden>
<h2 id="modalTitle"></h2><span id="modalPlatform"></span><span id="modalDate"></span><span id="modalTier"></span><span id="modalSimilarity"></span>
<div id="modalScrubbed"></div><div id="modalOriginal"></div><div id="modalExplanation"></div>
</div>
</body></html>`

// Page is an in-memory rendition of the client page. Every panel is a node
// of one HTML document; updates mutate the tree the way the browser client
// mutates its DOM. Page is safe for concurrent use.
type Page struct {
	mu sync.Mutex

	doc  *html.Node
	byID map[string]*html.Node

	policy *bluemonday.Policy
	md     *converter.Converter

	tabs     TabSet
	modal    Modal
	followUp FollowUpState
	scrolled map[Panel]int
}

// NewPage builds the initial page: prompt shown, everything else hidden.
func NewPage() *Page {
	doc, err := html.Parse(strings.NewReader(skeleton))
	if err != nil {
		panic(fmt.Sprintf("ui: parsing page skeleton: %v", err))
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()

	p := &Page{
		doc:    doc,
		byID:   make(map[string]*html.Node),
		policy: policy,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		scrolled: make(map[Panel]int),
	}
	walk(doc, func(n *html.Node) {
		if id := attr(n, "id"); id != "" {
			p.byID[id] = n
		}
	})
	p.applyTabs()
	return p
}

// --- research view ---

// BeginResearch clears and undims the trace, shows the research loader and
// hides the follow-up control.
func (p *Page) BeginResearch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clearChildren(p.el(IDTraceLogs))
	removeClass(p.el(IDResearchTrace), "dimmed")
	p.setFragment(IDSynthesisText, `<div class="pulse-loader"></div> `+researchLoading)
	p.setFollowUp(FollowUpHidden)
}

// AppendTrace adds line to the live trace.
func (p *Page) AppendTrace(line TraceLine) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cls := "trace-line"
	if line.Audit {
		if line.Expand() {
			cls += " audit-expand"
		} else {
			cls += " audit-stop"
		}
	}
	n := element("div", "class", cls)
	n.AppendChild(textNode(line.Text()))
	p.el(IDTraceLogs).AppendChild(n)
}

// AppendProtocol adds entry to the protocol log.
func (p *Page) AppendProtocol(entry ProtocolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := element("div", "class", "log-entry log-"+strings.ToLower(string(entry.Tag)))
	n.AppendChild(textNode(entry.Header()))
	if entry.Payload != "" {
		pre := element("pre")
		pre.AppendChild(textNode(entry.Payload))
		n.AppendChild(pre)
	}
	p.el(IDProtocolLog).AppendChild(n)
}

// ScrollToLatest brings the newest entry of panel into view.
func (p *Page) ScrollToLatest(panel Panel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolled[panel] = childCount(p.panel(panel))
}

// ShowSynthesis replaces the synthesis panel with fragment.
func (p *Page) ShowSynthesis(fragment string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setFragment(IDSynthesisText, fragment)
}

// AppendFollowUpAnswer adds a headed answer box below the synthesis.
func (p *Page) AppendFollowUpAnswer(fragment string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	box := element("div", "class", "follow-up-answer")
	h := element("h4")
	h.AppendChild(textNode(followUpHeading))
	box.AppendChild(h)
	for _, n := range p.parseFragment(fragment) {
		box.AppendChild(n)
	}
	p.el(IDSynthesisText).AppendChild(box)
}

// SetFollowUp sets the follow-up control state.
func (p *Page) SetFollowUp(state FollowUpState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setFollowUp(state)
}

// DimTrace fades the trace once the cycle is complete.
func (p *Page) DimTrace() {
	p.mu.Lock()
	defer p.mu.Unlock()
	addClass(p.el(IDResearchTrace), "dimmed")
}

// --- application view ---

// ResetForSearch clears the previous cycle: prompt hidden, loader shown,
// results emptied, synthesis placeholder set, follow-up hidden.
func (p *Page) ResetForSearch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	hide(p.el(IDInitialState))
	hide(p.el(IDResultsArea))
	show(p.el(IDLoader))
	clearChildren(p.el(IDResults))
	setText(p.el(IDSynthesisText), searchLoading)
	p.setFollowUp(FollowUpHidden)
}

// SetLoading shows or hides the loader.
func (p *Page) SetLoading(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	setVisible(p.el(IDLoader), on)
}

// ShowResults reveals the tabbed results area.
func (p *Page) ShowResults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	show(p.el(IDResultsArea))
}

// ShowStatsBanner replaces the banner above the evidence cards.
func (p *Page) ShowStatsBanner(total string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.el(IDStatsBanner)
	clearChildren(c)
	banner := element("div", "id", "stats-banner", "class", "stats-banner")
	banner.AppendChild(textNode("Following results queried from "))
	strong := element("strong")
	strong.AppendChild(textNode(total))
	banner.AppendChild(strong)
	banner.AppendChild(textNode(" datapoints."))
	c.AppendChild(banner)
	show(c)
}

// ShowSuggestion displays the suggestion bridge with text.
func (p *Page) ShowSuggestion(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	setText(p.el(IDSuggestionText), text)
	show(p.el(IDSuggestion))
}

// HideSuggestion hides the query suggestion.
func (p *Page) HideSuggestion() {
	p.mu.Lock()
	defer p.mu.Unlock()
	hide(p.el(IDSuggestion))
}

// RenderCards replaces the evidence grid with cards.
func (p *Page) RenderCards(cards []CardView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.el(IDResults)
	clearChildren(c)
	for _, card := range cards {
		c.AppendChild(cardNode(card))
	}
}

// ShowNoResults renders the empty state of a search without matches.
func (p *Page) ShowNoResults(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	setText(p.el(IDSynthesisText), message)
	c := p.el(IDResults)
	clearChildren(c)
	empty := element("div", "class", "empty-state")
	empty.AppendChild(textNode(emptyResultsText))
	c.AppendChild(empty)
}

// ShowError replaces the initial panel with an error and shows it.
func (p *Page) ShowError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setFragment(IDInitialState, ErrorHTML(message))
	show(p.el(IDInitialState))
}

// SwitchTab activates tab. Unknown tabs leave the page unchanged.
func (p *Page) SwitchTab(tab Tab) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.tabs.Switch(tab); err != nil {
		return err
	}
	p.applyTabs()
	return nil
}

// OpenModal shows the detail modal for item. Nil is a no-op.
func (p *Page) OpenModal(item *types.Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.modal.Open(item) {
		return false
	}
	v := p.modal.View()
	for id, text := range map[string]string{
		"modalTitle":       v.Title,
		"modalPlatform":    v.Platform,
		"modalDate":        v.Date,
		"modalTier":        v.Tier,
		"modalSimilarity":  v.Similarity,
		"modalScrubbed":    v.ContentScrubbed,
		"modalOriginal":    v.ContentOriginal,
		"modalExplanation": v.Explanation,
	} {
		setText(p.el(id), text)
	}
	show(p.el(IDModal))
	setAttr(body(p.doc), "style", "overflow: hidden")
	return true
}

// CloseModal hides the modal and unlocks scrolling.
func (p *Page) CloseModal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modal.Close()
	hide(p.el(IDModal))
	setAttr(body(p.doc), "style", "overflow: auto")
}

// SetFilterLabels updates the two filter toggle labels.
func (p *Page) SetFilterLabels(ai, sg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	setText(p.el(IDAIFilterLabel), ai)
	setText(p.el(IDSGFilterLabel), sg)
}

// --- chart container ---

// ShowChart reveals the trend chart container.
func (p *Page) ShowChart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	show(p.el(IDTrendsContainer))
}

// HideChart hides the trend chart container.
func (p *Page) HideChart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	hide(p.el(IDTrendsContainer))
}

// SetChart replaces the chart canvas with svg markup. Empty clears it.
func (p *Page) SetChart(svg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.el(IDTrendsChart)
	clearChildren(c)
	if svg == "" {
		return
	}
	nodes, err := html.ParseFragment(strings.NewReader(svg), c)
	if err != nil {
		c.AppendChild(textNode(svg))
		return
	}
	for _, n := range nodes {
		c.AppendChild(n)
	}
}

// --- inspection ---

// HTML renders the whole document.
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	if err := html.Render(&b, p.doc); err != nil {
		return ""
	}
	return b.String()
}

// InnerHTML renders the children of element id.
func (p *Page) InnerHTML(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return innerHTML(p.el(id))
}

// Text returns the text content of element id.
func (p *Page) Text(id string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return textContent(p.el(id))
}

// PanelText converts element id to Markdown.
func (p *Page) PanelText(id string) (string, error) {
	p.mu.Lock()
	frag := innerHTML(p.el(id))
	p.mu.Unlock()

	md, err := p.md.ConvertString(frag)
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", id, err)
	}
	return md, nil
}

// Markdown converts an HTML fragment to Markdown after sanitising it.
func (p *Page) Markdown(fragment string) (string, error) {
	md, err := p.md.ConvertString(p.policy.Sanitize(fragment))
	if err != nil {
		return "", fmt.Errorf("converting fragment to markdown: %w", err)
	}
	return md, nil
}

// Visible reports whether element id is shown.
func (p *Page) Visible(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !hasAttr(p.el(id), "hidden")
}

// ChildCount returns the number of child elements of id.
func (p *Page) ChildCount(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return childCount(p.el(id))
}

// HasClass reports whether element id carries class cls.
func (p *Page) HasClass(id, cls string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return hasClass(p.el(id), cls)
}

// Dimmed reports whether the trace was faded after completion.
func (p *Page) Dimmed() bool { return p.HasClass(IDResearchTrace, "dimmed") }

// AtLatest reports whether panel is scrolled to its newest entry.
func (p *Page) AtLatest(panel Panel) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolled[panel] == childCount(p.panel(panel))
}

// FollowUpState returns the follow-up control state.
func (p *Page) FollowUpState() FollowUpState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.followUp
}

// ActiveTab returns the selected results tab.
func (p *Page) ActiveTab() Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tabs.Active()
}

// Modal returns the modal state.
func (p *Page) Modal() (open bool, view ModalView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modal.IsOpen(), p.modal.View()
}

// ScrollLocked reports whether page scrolling is disabled by the modal.
func (p *Page) ScrollLocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return attr(body(p.doc), "style") == "overflow: hidden"
}

// --- internals; callers hold p.mu ---

func (p *Page) el(id string) *html.Node {
	n, ok := p.byID[id]
	if !ok {
		panic("ui: no element " + id)
	}
	return n
}

func (p *Page) panel(panel Panel) *html.Node {
	if panel == PanelTrace {
		return p.el(IDTraceLogs)
	}
	return p.el(IDProtocolLog)
}

func (p *Page) setFollowUp(state FollowUpState) {
	p.followUp = state
	n := p.el(IDFollowUp)
	setVisible(n, state != FollowUpHidden)
	btn := p.el("followUpBtn")
	if state == FollowUpBusy {
		setAttr(btn, "disabled", "")
		setText(btn, "...")
	} else {
		removeAttr(btn, "disabled")
		setText(btn, "Ask")
	}
}

func (p *Page) applyTabs() {
	active := p.tabs.Active()
	walk(p.el(IDTabs), func(n *html.Node) {
		if tab := attr(n, "data-tab"); tab != "" {
			toggleClass(n, "active", Tab(tab) == active)
		}
	})
	for _, t := range Tabs {
		toggleClass(p.el(string(t)+"-tab"), "active", t == active)
	}
}

// setFragment replaces the children of id with sanitised fragment.
func (p *Page) setFragment(id, fragment string) {
	n := p.el(id)
	clearChildren(n)
	for _, c := range p.parseFragment(fragment) {
		n.AppendChild(c)
	}
}

func (p *Page) parseFragment(fragment string) []*html.Node {
	clean := p.policy.Sanitize(fragment)
	ctx := element("div")
	nodes, err := html.ParseFragment(strings.NewReader(clean), ctx)
	if err != nil {
		return []*html.Node{textNode(clean)}
	}
	return nodes
}

func cardNode(c CardView) *html.Node {
	card := element("div",
		"class", "result-card",
		"data-index", fmt.Sprint(c.Index),
		"style", fmt.Sprintf("animation-delay: %gs", c.Delay.Seconds()),
	)

	header := element("div", "class", "card-header")
	platform := element("span", "class", "platform-tag")
	platform.AppendChild(textNode(c.Platform))
	header.AppendChild(platform)

	tier := element("span", "class", "tier-pill "+c.TierClass())
	tier.AppendChild(textNode(c.Tier))
	header.AppendChild(tier)

	badge := element("span", "class", "similarity-badge")
	badge.AppendChild(textNode(c.Relevance))
	tip := element("span", "class", "tooltiptext")
	tip.AppendChild(textNode("Match Score: " + c.Score + "%"))
	badge.AppendChild(tip)
	header.AppendChild(badge)
	card.AppendChild(header)

	content := element("div", "class", "content-body")
	content.AppendChild(textNode(c.Preview))
	card.AppendChild(content)
	return card
}

// --- node helpers ---

func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func body(doc *html.Node) *html.Node {
	var found *html.Node
	walk(doc, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && n.DataAtom == atom.Body {
			found = n
		}
	})
	return found
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func setText(n *html.Node, s string) {
	clearChildren(n)
	n.AppendChild(textNode(s))
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func childCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func show(n *html.Node) { removeAttr(n, "hidden") }
func hide(n *html.Node) { setAttr(n, "hidden", "") }

func setVisible(n *html.Node, on bool) {
	if on {
		show(n)
	} else {
		hide(n)
	}
}

func hasClass(n *html.Node, cls string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == cls {
			return true
		}
	}
	return false
}

func addClass(n *html.Node, cls string) {
	if hasClass(n, cls) {
		return
	}
	setAttr(n, "class", strings.TrimSpace(attr(n, "class")+" "+cls))
}

func removeClass(n *html.Node, cls string) {
	var kept []string
	for _, c := range strings.Fields(attr(n, "class")) {
		if c != cls {
			kept = append(kept, c)
		}
	}
	setAttr(n, "class", strings.Join(kept, " "))
}

func toggleClass(n *html.Node, cls string, on bool) {
	if on {
		addClass(n, cls)
	} else {
		removeClass(n, cls)
	}
}
