package app

import (
	"fmt"

	abacService "github.com/allisson/accessgate/internal/abac/service"
	macHTTP "github.com/allisson/accessgate/internal/mac/http"
	macUseCase "github.com/allisson/accessgate/internal/mac/usecase"
)

// Classifier returns the keyword content classifier, loading CLASSIFIER_KEYWORDS_PATH
// when it is set.
func (c *Container) Classifier() (*abacService.Classifier, error) {
	var err error
	c.classifierInit.Do(func() {
		c.classifier, err = c.initClassifier()
		if err != nil {
			c.initErrors["classifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["classifier"]; exists {
		return nil, storedErr
	}
	return c.classifier, nil
}

// LabelUseCase returns the clearance and classification use case.
func (c *Container) LabelUseCase() (macUseCase.LabelUseCase, error) {
	var err error
	c.labelUseCaseInit.Do(func() {
		c.labelUseCase, err = c.initLabelUseCase()
		if err != nil {
			c.initErrors["labelUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["labelUseCase"]; exists {
		return nil, storedErr
	}
	return c.labelUseCase, nil
}

// LabelHandler returns the clearance and classification HTTP handler.
func (c *Container) LabelHandler() (*macHTTP.LabelHandler, error) {
	var err error
	c.labelHandlerInit.Do(func() {
		c.labelHandler, err = c.initLabelHandler()
		if err != nil {
			c.initErrors["labelHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["labelHandler"]; exists {
		return nil, storedErr
	}
	return c.labelHandler, nil
}

func (c *Container) initClassifier() (*abacService.Classifier, error) {
	keywords := abacService.DefaultKeywordConfig()
	if c.config.ClassifierKeywordsPath != "" {
		loaded, err := abacService.LoadKeywordConfig(c.config.ClassifierKeywordsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load classifier keywords: %w", err)
		}
		keywords = loaded
	}
	return abacService.NewClassifier(keywords), nil
}

func (c *Container) initLabelUseCase() (macUseCase.LabelUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for label use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for label use case: %w", err)
	}

	resourceRepo, err := c.ResourceRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource repository for label use case: %w", err)
	}

	classifier, err := c.Classifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get classifier for label use case: %w", err)
	}

	recorder, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for label use case: %w", err)
	}

	return macUseCase.NewLabelUseCase(txManager, userRepo, resourceRepo, classifier, recorder), nil
}

func (c *Container) initLabelHandler() (*macHTTP.LabelHandler, error) {
	labelUseCase, err := c.LabelUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get label use case for label handler: %w", err)
	}
	return macHTTP.NewLabelHandler(labelUseCase, c.Logger()), nil
}
