// Package semver parses semantic versions and version requirements.
//
// # Overview
//
// [Version] is a concrete major.minor.patch[-pre][+build] triple ordered by
// semver 2.0 precedence. [Requirement] is a range expression made of one or
// more [ComparatorSet] values joined by "||".
//
// Requirement syntax follows Cargo: a bare version such as "1.2" means
// "^1.2", comparators are separated by commas. npm style input is accepted
// as well (whitespace separation, x-ranges and hyphen ranges), so a single
// parser serves Cargo.toml, package.json and wally.toml manifests.
//
// # Usage
//
//	req, err := semver.ParseRequirement("^1.2")
//	if err != nil {
//	    return err
//	}
//
//	req.Matches(semver.MustParseVersion("1.4.0")) // true
//	req.MinimumVersion().String()                 // "1.2.0"
//
// # Minimum Versions
//
// [Requirement.MinimumVersion] turns a range into a concrete version for
// display and completion prefixes. Every comparator contributes the lower
// bound of its window and the smallest one is returned:
//
//	^1.2.3  -> 1.2.3
//	~1.2    -> 1.2.0
//	>1.2    -> 1.3.0
//	<=1.2   -> 1.3.0
//	^0.0.3  -> 0.0.3
//	*       -> 0.0.0
package semver
