package domain

// Denial reasons returned by the lattice checks. They never name the missing
// compartments or the resource level so callers can surface them verbatim.
const (
	ReasonTrustedSubject       = "trusted subject"
	ReasonGranted              = "clearance dominates label"
	ReasonInsufficientLevel    = "insufficient clearance"
	ReasonMissingCompartments  = "insufficient compartment access"
	ReasonInvalidLevel         = "invalid security level"
	ReasonClassifyAboveSubject = "cannot classify above own clearance"
	ReasonDeclassifyUntrusted  = "only trusted subjects may declassify"
	ReasonDeclassifyNotLower   = "declassification must lower the level"
	ReasonCompartmentNotHeld   = "cannot classify into compartments not held"
)

// Decision is the outcome of a lattice check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// CanRead decides whether a subject may read a resource. The subject level must be
// at or above the resource level and the subject must hold every compartment the
// resource is tagged with. Trusted subjects bypass both checks.
func CanRead(
	subjectLevel, resourceLevel Level,
	subjectCompartments, resourceCompartments []string,
	trustedSubject bool,
) Decision {
	if trustedSubject {
		return allow(ReasonTrustedSubject)
	}
	if !subjectLevel.IsValid() || !resourceLevel.IsValid() {
		return deny(ReasonInvalidLevel)
	}
	if !subjectLevel.Dominates(resourceLevel) {
		return deny(ReasonInsufficientLevel)
	}
	if !Compartments(subjectCompartments).Covers(resourceCompartments) {
		return deny(ReasonMissingCompartments)
	}
	return allow(ReasonGranted)
}

// CanWrite applies the same rule as CanRead: a subject may only write at or below its
// own level. The no-write-down property is not enforced.
func CanWrite(
	subjectLevel, resourceLevel Level,
	subjectCompartments, resourceCompartments []string,
	trustedSubject bool,
) Decision {
	return CanRead(subjectLevel, resourceLevel, subjectCompartments, resourceCompartments, trustedSubject)
}

// CanClassify decides whether a subject may set a resource to targetLevel.
// Untrusted subjects may only classify at or below their own level.
func CanClassify(subjectLevel, targetLevel Level, trustedSubject bool) Decision {
	if !targetLevel.IsValid() {
		return deny(ReasonInvalidLevel)
	}
	if trustedSubject {
		return allow(ReasonTrustedSubject)
	}
	if !subjectLevel.Dominates(targetLevel) {
		return deny(ReasonClassifyAboveSubject)
	}
	return allow(ReasonGranted)
}

// CanDeclassify decides whether a subject may lower a resource from currentLevel to
// targetLevel. Only trusted subjects may declassify.
func CanDeclassify(currentLevel, targetLevel Level, trustedSubject bool) Decision {
	if !currentLevel.IsValid() || !targetLevel.IsValid() {
		return deny(ReasonInvalidLevel)
	}
	if !trustedSubject {
		return deny(ReasonDeclassifyUntrusted)
	}
	if targetLevel.Rank() >= currentLevel.Rank() {
		return deny(ReasonDeclassifyNotLower)
	}
	return allow(ReasonTrustedSubject)
}

// CanRelabel decides whether a subject may replace a resource's current label with
// target at the same or a higher level. Dropping a current compartment removes a
// need-to-know restriction and so counts as declassification. Untrusted subjects may
// only add compartments they hold themselves.
func CanRelabel(subject, current, target Label, trustedSubject bool) Decision {
	if trustedSubject {
		return allow(ReasonTrustedSubject)
	}
	if !target.Compartments.Covers(current.Compartments) {
		return deny(ReasonDeclassifyUntrusted)
	}
	held := make([]string, 0, len(subject.Compartments)+len(current.Compartments))
	held = append(held, subject.Compartments...)
	held = append(held, current.Compartments...)
	if !NormalizeCompartments(held).Covers(target.Compartments) {
		return deny(ReasonCompartmentNotHeld)
	}
	return allow(ReasonGranted)
}
