package browser

import "fmt"

// interactiveElementsScript enumerates DOM-visible interactive elements in
// document order, capped at limit, with the best selector the page can offer
// for each.
func interactiveElementsScript(limit int) string {
	return fmt.Sprintf(`(() => {
		try {
			const limit = %d;
			const nodes = document.querySelectorAll('a, button, input, select, textarea, [role="button"]');
			const result = [];

			const generateSelector = (el) => {
				const tag = el.tagName.toLowerCase();

				const qaAttrs = ['data-test-id', 'data-testid', 'data-qa', 'data-cy'];
				for (const attr of qaAttrs) {
					const val = el.getAttribute(attr);
					if (val) {
						return tag + '[' + attr + '="' + val + '"]';
					}
				}

				if (el.id && /^[a-zA-Z]/.test(el.id) && !el.id.includes(' ')) {
					return '#' + el.id;
				}

				const name = el.getAttribute('name');
				if (name && ['input', 'select', 'textarea', 'button'].includes(tag)) {
					return tag + '[name="' + name + '"]';
				}

				const ariaLabel = el.getAttribute('aria-label');
				if (ariaLabel && ariaLabel.length < 80) {
					return '[aria-label="' + ariaLabel + '"]';
				}

				if (el.type && tag === 'input') {
					if (el.placeholder) {
						return 'input[type="' + el.type + '"][placeholder="' + el.placeholder + '"]';
					}
					return 'input[type="' + el.type + '"]';
				}

				if (el.className && typeof el.className === 'string') {
					const classes = el.className.split(' ')
						.filter(c => c && !c.match(/^[0-9]/) && c.length < 40)
						.slice(0, 2);
					if (classes.length > 0) {
						return '.' + classes.join('.');
					}
				}

				let path = [];
				let current = el;
				let depth = 0;
				while (current && current.tagName && depth < 3) {
					const t = current.tagName.toLowerCase();
					if (current.id) {
						path.unshift('#' + current.id);
						break;
					}
					const index = Array.from(current.parentNode ? current.parentNode.children : []).indexOf(current);
					if (index >= 0) {
						path.unshift(t + ':nth-child(' + (index + 1) + ')');
					}
					current = current.parentElement;
					depth++;
				}
				return path.length > 0 ? path.join(' > ') : tag;
			};

			for (let i = 0; i < nodes.length && result.length < limit; i++) {
				const el = nodes[i];
				const rect = el.getBoundingClientRect();
				const style = window.getComputedStyle(el);

				const visible = (
					rect.width > 0 &&
					rect.height > 0 &&
					style.display !== 'none' &&
					style.visibility !== 'hidden' &&
					style.opacity !== '0'
				);
				if (!visible) continue;

				const ariaLabel = el.getAttribute('aria-label');

				let text = (el.innerText || el.textContent || el.value || ariaLabel || '').trim();
				if (text.length > 80) {
					text = text.substring(0, 80) + '...';
				}

				const attrs = {};
				if (el.placeholder) attrs.placeholder = el.placeholder.substring(0, 50);
				if (ariaLabel) attrs['aria-label'] = ariaLabel.substring(0, 100);
				const role = el.getAttribute('role');
				if (role) attrs.role = role;

				result.push({
					tag: el.tagName.toLowerCase(),
					id: el.id || '',
					name: el.getAttribute('name') || '',
					type: el.type || '',
					href: el.href ? String(el.href).substring(0, 200) : '',
					text: text,
					attributes: attrs,
					selector: generateSelector(el),
					visible: true,
					x: Math.round(rect.left),
					y: Math.round(rect.top),
					width: Math.round(rect.width),
					height: Math.round(rect.height)
				});
			}

			return result;
		} catch (e) {
			return [];
		}
	})()`, limit)
}

// pageInfoScript gathers the coarse page metadata used for page-type
// classification.
func pageInfoScript() string {
	return `(() => {
		try {
			return {
				forms: document.forms.length,
				links: document.querySelectorAll('a[href]').length,
				images: document.querySelectorAll('img').length,
				has_login: !!document.querySelector('input[type="password"]'),
				has_search: !!document.querySelector('input[type="search"], input[name*="search" i], input[placeholder*="search" i], [role="search"] input'),
				ready: document.readyState === 'complete'
			};
		} catch (e) {
			return {forms: 0, links: 0, images: 0, has_login: false, has_search: false, ready: false};
		}
	})()`
}
