package scraper

// normalizeJS runs before any page script, after the stealth bundle. It pins
// the few properties headless Chromium still gives away on this portal.
// It is a statement, not a function: EvalOnNewDocument runs it verbatim.
const normalizeJS = `(() => {
	try { Object.defineProperty(navigator, 'webdriver', { get: () => false }); } catch (e) {}
	try {
		if (!navigator.plugins || navigator.plugins.length === 0) {
			Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
		}
	} catch (e) {}
	try { Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] }); } catch (e) {}
	if (!window.chrome) { window.chrome = {}; }
	if (!window.chrome.runtime) { window.chrome.runtime = {}; }
	try {
		const originalQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (parameters) =>
			parameters.name === 'notifications'
				? Promise.resolve({ state: Notification.permission })
				: originalQuery(parameters);
	} catch (e) {}
})();`

// landingJS reads where the navigation ended up. The status comes from the
// navigation timing entry, which needs no CDP event listener.
const landingJS = `() => {
	let status = 0;
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) status = entries[0].responseStatus || 0;
	} catch (e) {}
	return {
		url: window.location.href,
		title: document.title || "",
		status: status,
		text: document.body ? (document.body.innerText || "") : "",
	};
}`

// hasVideoJS reports whether a <video> exists on the page or one iframe down.
const hasVideoJS = `() => {
	if (document.querySelector('video')) return true;
	for (const f of document.querySelectorAll('iframe')) {
		try { if (f.contentDocument && f.contentDocument.querySelector('video')) return true; } catch (e) {}
	}
	return false;
}`

// forcePlayJS mutes and plays every video, one iframe level included, and
// returns how many it found.
const forcePlayJS = `() => {
	let n = 0;
	const play = (doc) => {
		doc.querySelectorAll('video').forEach(v => {
			n++;
			try { v.muted = true; const p = v.play(); if (p && p.catch) p.catch(() => {}); } catch (e) {}
		});
	};
	play(document);
	document.querySelectorAll('iframe').forEach(f => {
		try { if (f.contentDocument) play(f.contentDocument); } catch (e) {}
	});
	return n;
}`

// scrollJS brings a below-the-fold player into view to trigger lazy loading.
const scrollJS = `() => { window.scrollTo(0, (document.body ? document.body.scrollHeight : 0) / 3); }`

// iframesJS lists the src of every iframe.
const iframesJS = `() => Array.from(document.querySelectorAll('iframe')).map(f => f.src || f.getAttribute('src') || '').filter(Boolean)`
